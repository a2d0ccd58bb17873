package main

import (
	"flag"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/docq-ai/docq/pkg/config"
	"github.com/docq-ai/docq/pkg/rag"
	"github.com/docq-ai/docq/server"
)

func main() {
	var configPath, addr string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		os.Exit(1)
	}

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal(err)
	}

	engine, err := rag.FromConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	srv := server.New(server.Config{
		Addr:          cfg.Server.Addr,
		UploadDir:     cfg.Loader.UploadDir,
		MaxFileSizeMB: cfg.Loader.MaxFileSizeMB,
		TopK:          cfg.Retrieval.TopK,
		Streaming:     cfg.StreamingEnabled(),
	}, engine)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
