package main

import (
	"log"

	"github.com/m3rciful/stickerbot/core/bootstrap"
	"github.com/m3rciful/stickerbot/core/bot"
	"github.com/m3rciful/stickerbot/core/buildinfo"
	corecmd "github.com/m3rciful/stickerbot/core/cmd"
)

func main() {
	log.Printf("stickerbot %s (%s)", buildinfo.Version, buildinfo.Commit)

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			infra, err := bootstrap.Run(bootstrap.Options{Config: carrier.CoreConfig()})
			if err != nil {
				return nil, err
			}
			return bot.New(carrier.CoreConfig(), infra)
		},
	})
	if err != nil {
		log.Fatalf("stickerbot: %v", err)
	}
}
