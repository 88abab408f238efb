package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Textflow/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		jobs    []domain.Job
		wantErr error
	}{
		{
			name: "valid",
			jobs: []domain.Job{
				{ID: "a", Task: "t", Inputs: map[string]domain.Source{"in": domain.External("doc")}},
				{ID: "b", Task: "t", Inputs: map[string]domain.Source{"in": domain.JobOutput("a", "out")},
					Outputs: map[string]domain.OutputClaim{"out": {Main: true}}},
			},
		},
		{
			name:    "empty id",
			jobs:    []domain.Job{{Task: "t"}},
			wantErr: ErrEmptyJobID,
		},
		{
			name:    "duplicate id",
			jobs:    []domain.Job{{ID: "a", Task: "t"}, {ID: "a", Task: "t"}},
			wantErr: ErrDuplicateJobID,
		},
		{
			name:    "empty task",
			jobs:    []domain.Job{{ID: "a"}},
			wantErr: ErrEmptyTaskRef,
		},
		{
			name:    "external without name",
			jobs:    []domain.Job{{ID: "a", Task: "t", Inputs: map[string]domain.Source{"in": {Type: domain.SourceExternal}}}},
			wantErr: ErrInvalidSource,
		},
		{
			name:    "job source without port",
			jobs:    []domain.Job{{ID: "a", Task: "t", Inputs: map[string]domain.Source{"in": {Type: domain.SourceJob, JobID: "b"}}}},
			wantErr: ErrInvalidSource,
		},
		{
			name:    "unknown source type",
			jobs:    []domain.Job{{ID: "a", Task: "t", Inputs: map[string]domain.Source{"in": {Type: "file"}}}},
			wantErr: ErrInvalidSource,
		},
		{
			name:    "claim both main and named",
			jobs:    []domain.Job{{ID: "a", Task: "t", Outputs: map[string]domain.OutputClaim{"out": {Main: true, Name: "x"}}}},
			wantErr: ErrInvalidClaim,
		},
		{
			name:    "empty claim",
			jobs:    []domain.Job{{ID: "a", Task: "t", Outputs: map[string]domain.OutputClaim{"out": {}}}},
			wantErr: ErrInvalidClaim,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&domain.Workflow{Name: "wf", Jobs: tt.jobs})
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !IsFatal(err) {
				t.Errorf("structure errors must be fatal: %v", err)
			}
		})
	}
}
