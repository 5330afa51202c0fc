package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	command, path := args[0], args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	switch command {
	case "validate":
		if _, err := schema.Parse(path, data); err != nil {
			log.Fatalf("invalid schema: %v", err)
		}
		fmt.Printf("%s is valid\n", path)
	case "fill":
		if err := runFill(context.Background(), path, data); err != nil {
			log.Fatalf("fill: %v", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func runFill(ctx context.Context, path string, data []byte) error {
	sch, err := schema.Parse(path, data)
	if err != nil {
		return err
	}

	persistence := response.NewMemoryPersistence()
	persistence.RegisterTemplate(sch)

	engine, err := formflow.New(formflow.WithPersistence(persistence))
	if err != nil {
		return err
	}

	sess, err := engine.OpenSession(ctx, sch.Slug, response.StaticIdentity{ID: "cli"})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := fillSession(sess, sch); err != nil {
		return err
	}
	if err := sess.Submit(ctx); err != nil {
		for _, fieldErr := range sess.Errors() {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", fieldErr.FieldID, fieldErr.Message)
		}
		return err
	}

	submitted, err := persistence.ListResponses(ctx, response.ListFilter{TemplateSlug: sch.Slug})
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(submitted[len(submitted)-1].Data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  formflow-cli validate <schema.(yaml|json)>   check schema invariants
  formflow-cli fill <schema.(yaml|json)>       fill the form interactively
`)
}
