// wmsctl ejecuta un comando del almacén directamente contra la base de datos configurada.
//
// Uso:
//
//	wmsctl --actor 1 --command shipment.prepare --payload '{"voucher_id":3,"product_id":1,"quantity":5}'
//	wmsctl --file sobre.json          # sobre completo {command, payload, actorId, ...}
//	cat sobre.json | wmsctl --file -
//	wmsctl --list
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/jhoicas/almacen-wms/internal/application/command"
	"github.com/jhoicas/almacen-wms/internal/bootstrap"
	"github.com/jhoicas/almacen-wms/pkg/config"
	"github.com/jhoicas/almacen-wms/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("wmsctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file      = fs.StringP("file", "f", "", "sobre JSON a ejecutar (- = stdin)")
		name      = fs.StringP("command", "c", "", "nombre del comando")
		payload   = fs.StringP("payload", "p", "", "carga JSON del comando")
		actor     = fs.Int64P("actor", "a", 0, "id del usuario que ejecuta el comando")
		org       = fs.Int64("org", 0, "organización del actor (0 = todas)")
		requestID = fs.String("request-id", "", "identificador de petición (por defecto uno nuevo)")
		list      = fs.Bool("list", false, "listar los comandos disponibles")
		compact   = fs.Bool("compact", false, "salida JSON en una línea")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "cargar configuración: %v\n", err)
		return 1
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "wmsctl", Out: stderr})

	ctx := context.Background()
	container, err := bootstrap.New(ctx, cfg, log.Zerolog())
	if err != nil {
		fmt.Fprintf(stderr, "inicializar servicios: %v\n", err)
		return 1
	}
	defer container.Close()

	if *list {
		for _, n := range container.Dispatcher.Commands() {
			fmt.Fprintln(stdout, n)
		}
		return 0
	}

	env, err := envelope(*file, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	if *name != "" {
		env.Command = *name
	}
	if *payload != "" {
		env.Payload = json.RawMessage(*payload)
	}
	if *actor != 0 {
		env.ActorID = *actor
	}
	if *org != 0 {
		env.OrganizationID = *org
	}
	if *requestID != "" {
		env.RequestID = *requestID
	}
	if env.Command == "" {
		fmt.Fprintln(stderr, "falta --command o --file")
		fs.Usage()
		return 2
	}

	res := container.Dispatcher.Dispatch(ctx, env)
	enc := json.NewEncoder(stdout)
	if !*compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(stderr, "escribir resultado: %v\n", err)
		return 1
	}
	if !res.OK {
		return 1
	}
	return 0
}

func envelope(path string, stdin io.Reader) (command.Envelope, error) {
	var env command.Envelope
	if path == "" {
		return env, nil
	}
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return env, fmt.Errorf("abrir sobre: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return env, fmt.Errorf("sobre inválido: %w", err)
	}
	return env, nil
}
