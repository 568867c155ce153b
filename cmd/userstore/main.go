// Command userstore manages per-user gateway storage from the shell.
//
//	userstore [-config file] ls    <user> [path]
//	userstore [-config file] du    <user> [path]
//	userstore [-config file] mkdir <user> <path>
//	userstore [-config file] rmdir <user> <path>
//	userstore [-config file] put   <user> <local-file> [dir]
//	userstore [-config file] rm    <user> <path>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/nuln/userstore"
	"github.com/nuln/userstore/config"
	"github.com/nuln/userstore/storage"
)

const usage = `usage: userstore [-config file] <command> <user> [args]

commands:
  ls    <user> [path]              list a directory
  du    <user> [path]              print the size of a file or directory
  mkdir <user> <path>              create a directory
  rmdir <user> <path>              remove a directory recursively
  put   <user> <local-file> [dir]  store a copy of a local file (default dir: tmp)
  rm    <user> <path>              delete a file and its catalog association
`

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/userstore/config.yaml)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, flag.Arg(0), flag.Arg(1), flag.Args()[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "userstore: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, command, username string, args []string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := config.CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ds, err := config.CreateDatastore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	index, err := config.CreateIndex(cfg)
	if err != nil {
		return fmt.Errorf("failed to open path index: %w", err)
	}
	defer func() { _ = index.Close() }()
	client, err := config.CreateCatalogClient(cfg)
	if err != nil {
		return err
	}

	s := config.CreateStorage(cfg, ds, index, logger)
	actor := userstore.Actor{Username: username, Catalog: client}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("running command",
		zap.String("command", command),
		zap.String("username", username),
		zap.Strings("args", args),
	)

	switch command {
	case "ls":
		return list(ctx, out, s, actor, optArg(args, 0, ""))
	case "du":
		size, err := ds.Size(username, optArg(args, 0, ""))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, size)
		return err
	case "mkdir":
		if len(args) != 1 {
			return errors.New("mkdir: expected <path>")
		}
		return s.CreateUserDir(ctx, actor, args[0])
	case "rmdir":
		if len(args) != 1 {
			return errors.New("rmdir: expected <path>")
		}
		return s.DeleteDir(ctx, actor, args[0])
	case "put":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("put: expected <local-file> [dir]")
		}
		return put(ctx, out, s, actor, args[0], optArg(args, 1, userstore.StagingDir))
	case "rm":
		if len(args) != 1 {
			return errors.New("rm: expected <path>")
		}
		return remove(ctx, s, actor, args[0])
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func optArg(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

func list(ctx context.Context, out io.Writer, s *storage.Storage, actor userstore.Actor, p string) error {
	dirs, files, err := s.ListDir(ctx, actor, p)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, d := range dirs {
		if d.Hidden {
			continue
		}
		fmt.Fprintf(w, "%s/\t%d\t%s\t\n", d.Name, d.Size, d.CreatedTime.Format(time.RFC3339))
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", f.Name, f.Size, f.CreatedTime.Format(time.RFC3339), f.DataProductURI)
	}
	return w.Flush()
}

func put(ctx context.Context, out io.Writer, s *storage.Storage, actor userstore.Actor, local, dir string) error {
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	p, err := s.Save(ctx, actor, dir, f, filepath.Base(local), "")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, p.ProductURI)
	return err
}

func remove(ctx context.Context, s *storage.Storage, actor userstore.Actor, p string) error {
	uri, ok, err := s.UserFileExists(ctx, actor, p)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("file %s: %w", p, userstore.ErrNotFound)
	}
	full, err := s.Datastore().Path(actor.Username, p)
	if err != nil {
		return err
	}
	product := s.Bridge().NewDataProduct(actor.Username, full, "", "")
	product.ProductURI = uri
	return s.Delete(ctx, actor, product)
}
