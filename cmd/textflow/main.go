// Textflow — движок выполнения workflow.
//
// Использование:
//
//	textflow [--json] [--log-level LEVEL] <command> [flags]
//
// Команды:
//
//	run       Выполнить определение локально
//	validate  Проверить определение без выполнения
//	schedule  Повторять запуск по cron
//	serve     HTTP API
//	remote    Работа через API сервер
//	events    События о runs из RabbitMQ
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Textflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
