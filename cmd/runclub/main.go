package main

import (
	"fmt"
	"log"
	"os"

	"github.com/physhka/runclub-bot/club"
	"github.com/physhka/runclub-bot/core/buildinfo"
	corecmd "github.com/physhka/runclub-bot/core/cmd"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(buildinfo.String())
		return
	}

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return club.LoadConfig(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			clubCfg, ok := cfg.(*club.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return club.Bootstrap(clubCfg)
		},
	})
	if err != nil {
		log.Fatalf("runclub: %v", err)
	}
}
