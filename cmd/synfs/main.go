package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/synfs/synfs/internal/logger"
	"github.com/synfs/synfs/pkg/config"
	"github.com/synfs/synfs/pkg/entity"
	"github.com/synfs/synfs/pkg/rest"
	"github.com/synfs/synfs/pkg/upload"
	"github.com/synfs/synfs/pkg/vfs"
)

const usage = `synfs - virtual filesystem client for the entity store

Usage:
  synfs [flags] cp <source> <target>     copy between a local file and a syn:// path
  synfs [flags] stat <syn://id[.v]>      print entity metadata
  synfs [flags] mkdir <syn://id>         verify a folder entity exists

Flags:
`

func main() {
	configPath := pflag.String("config", "", "Path to config file (default: user config dir)")
	logLevel := pflag.String("log-level", "", "Override configured log level (DEBUG, INFO, WARN, ERROR)")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synfs: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)

	token, err := cfg.ResolveToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "synfs: %v\n", err)
		os.Exit(1)
	}

	client := rest.NewClient(rest.ClientConfig{
		Endpoint:          cfg.Endpoint,
		Token:             token,
		ConnectTimeout:    cfg.HTTP.ConnectTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		PartUploadTimeout: cfg.HTTP.PartUploadTimeout,
	})

	fs := vfs.New(client, upload.Config{MinPartSize: cfg.Upload.MinPartSize})
	defer func() { _ = fs.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, fs, args); err != nil {
		fmt.Fprintf(os.Stderr, "synfs: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, fs *vfs.FileSystem, args []string) error {
	switch args[0] {
	case "cp":
		if len(args) != 3 {
			return fmt.Errorf("cp requires a source and a target")
		}
		return fs.Copy(ctx, args[1], args[2])

	case "stat":
		if len(args) != 2 {
			return fmt.Errorf("stat requires a path")
		}
		return stat(ctx, fs, args[1])

	case "mkdir":
		if len(args) != 2 {
			return fmt.Errorf("mkdir requires a path")
		}
		path, err := entity.Parse(args[1])
		if err != nil {
			return err
		}
		return fs.CreateDirectory(ctx, path)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func stat(ctx context.Context, fs *vfs.FileSystem, uri string) error {
	path, err := entity.Parse(uri)
	if err != nil {
		return err
	}

	meta, err := fs.Stat(ctx, path)
	if err != nil {
		return err
	}

	fmt.Printf("id:       %s\n", meta.ID)
	fmt.Printf("name:     %s\n", fs.DisplayName(ctx, path))
	fmt.Printf("type:     %s\n", meta.ConcreteType)
	if meta.IsFile() {
		fmt.Printf("size:     %d\n", meta.FileSize)
		fmt.Printf("md5:      %s\n", meta.MD5)
		fmt.Printf("handle:   %s\n", meta.DataFileHandleID)
	}
	fmt.Printf("created:  %s\n", meta.CreatedOn)
	fmt.Printf("modified: %s\n", meta.ModifiedOn)
	return nil
}
