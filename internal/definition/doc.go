// Package definition загружает определения workflow из YAML, JSON и HCL.
//
// Определение описывает граф задач, внешние объекты и объекты задач,
// собранные из встроенных типов через tasks.Factory. Объект задачи типа
// workflow — вложенное определение, заданное прямо в документе или путём
// к файлу.
//
// Пример (YAML):
//
//	name: greeting
//	externals:
//	  doc:
//	    text: hello
//	tasks:
//	  shout:
//	    type: template
//	    settings:
//	      template: "{{ .Inputs.in | upper }}"
//	jobs:
//	  - id: render
//	    task: shout
//	    inputs:
//	      in: external:doc
//	    outputs:
//	      out: main
package definition
