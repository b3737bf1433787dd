package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"heapdb/catalog"
	"heapdb/catalog/db_types"
	"heapdb/config"
	"heapdb/disk"
	"heapdb/disk/structures"
	"heapdb/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file, defaults are used when empty")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	env, err := cfg.NewEnv(log)
	if err != nil {
		log.Fatal("failed to open storage environment", zap.Error(err))
	}

	if err := testHeapStorage(env); err != nil {
		log.Fatal("heap storage test failed", zap.Error(err))
	}
	log.Info("heap storage test ok")
}

// testHeapStorage creates and drops a scratch table, then round trips one row through a second one.
func testHeapStorage(env disk.Env) (err error) {
	log := env.Logger()
	suffix := uuid.New().String()

	schema, err := catalog.NewSchema(
		catalog.NewColumn("a", db_types.Integer),
		catalog.NewColumn("b", db_types.Text),
	)
	if err != nil {
		return err
	}

	scratch := structures.NewHeapTable("_test_create_drop_"+suffix, schema, env)
	if err := scratch.Create(); err != nil {
		return err
	}
	if err := scratch.Drop(); err != nil {
		return err
	}
	log.Info("create and drop ok")

	table := structures.NewHeapTable("_test_data_"+suffix, schema, env)
	if err := table.CreateIfNotExists(); err != nil {
		return err
	}
	defer func() {
		if dropErr := table.Drop(); dropErr != nil && err == nil {
			err = dropErr
		}
	}()

	row := catalog.Row{"a": db_types.NewValue(12), "b": db_types.NewValue("Hello!")}
	if _, err := table.Insert(row); err != nil {
		return err
	}

	handles, err := table.Select()
	if err != nil {
		return err
	}
	if len(handles) != 1 {
		return fmt.Errorf("expected 1 handle, got %d", len(handles))
	}

	got, err := table.Project(handles[0])
	if err != nil {
		return err
	}
	if !row.Equal(got) {
		return errors.New("projected row " + got.String() + " is not " + row.String())
	}

	log.Info("insert, select and project ok", zap.Stringer("handle", handles[0]), zap.Stringer("row", got))
	return nil
}
