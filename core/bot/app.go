package bot

import (
	"context"
	"time"

	"github.com/m3rciful/stickerbot/core/bootstrap"
	coreconfig "github.com/m3rciful/stickerbot/core/config"
	"github.com/m3rciful/stickerbot/core/media"
	"github.com/m3rciful/stickerbot/core/packapi"
	"github.com/m3rciful/stickerbot/core/session"
	coretelegram "github.com/m3rciful/stickerbot/core/telegram"
	"github.com/m3rciful/stickerbot/core/telegram/commands"
	"github.com/m3rciful/stickerbot/core/telegram/middleware"
	"github.com/m3rciful/stickerbot/core/telegram/router"
	tgsender "github.com/m3rciful/stickerbot/core/telegram/sender"
)

// Config carries the loaded core configuration for the cmd runner.
type Config struct {
	core *coreconfig.Config
}

// LoadConfig reads and validates the bot configuration.
func LoadConfig(path string) (*Config, error) {
	core, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return &Config{core: core}, nil
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return c.core
}

// App wires the sticker bot: session registry, media pipeline, pack
// client and the Telegram surface.
type App struct {
	cfg        *coreconfig.Config
	sessions   *session.Registry
	replier    *telegramReplier
	pipe       *pipeline
	dispatcher *tgsender.Dispatcher
}

// New assembles the application from configuration and bootstrapped
// infrastructure.
func New(cfg *coreconfig.Config, infra *bootstrap.Result) (*App, error) {
	dispatcher := tgsender.NewDispatcher(tgsender.Options{})
	replier := &telegramReplier{disp: dispatcher}

	encoder := media.NewEncoder(media.EncoderOptions{
		Executor:    infra.Executor,
		SizeBudget:  int64(cfg.Encoder.SizeBudget()),
		MaxDuration: cfg.Encoder.MaxDuration(),
		CRFLadder:   cfg.Encoder.Ladder(),
	})
	pipe := &pipeline{encoder: encoder}

	packs := packapi.New(packapi.Options{
		Token:       cfg.Telegram.Token,
		OwnerID:     cfg.Stickers.OwnerID,
		BotUsername: cfg.Stickers.BotUsername,
	}, coretelegram.BuildHTTPClient())

	sessions := session.NewRegistry(session.Deps{
		Processor: pipe,
		Packs:     packs,
		Replier:   replier,
		PackNames: cfg.Stickers.Packs,
	}, cfg.Stickers.SessionTimeout())

	return &App{
		cfg:        cfg,
		sessions:   sessions,
		replier:    replier,
		pipe:       pipe,
		dispatcher: dispatcher,
	}, nil
}

// TelegramRunOptions builds the bot surface: commands, routes and the
// shared middleware chain.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "What this bot does",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "How to make a sticker",
	})
	reg.RegisterCommand("/sticker", commands.Command{
		Handler:     a.handleSticker,
		Description: "Turn the replied media into a sticker",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Abort the current sticker request",
	})
	reg.RegisterCommand("/packs", commands.Command{
		Handler:     a.handlePacks,
		Description: "List configured sticker packs",
		AdminOnly:   true,
		Hidden:      true,
	})
	if err := reg.RegisterCallback(packCallbackKey, a.handlePackCallback); err != nil {
		return coretelegram.RunOptions{}, err
	}

	mws := []coretelegram.Middleware{
		{Name: "allowed_chats", Use: middleware.AllowedChatsMiddleware(a.cfg.Stickers.ChatAllowed)},
	}
	mws = append(mws, coretelegram.DefaultMiddlewares(a.cfg, nil)...)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(&sessionsAdapter{app: a}, reg, router.TextOptions{
		Media: a.handleMedia,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: mws,
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.replier.setBot(rt.Bot)
			a.pipe.setBot(rt.Bot)
			go a.sessions.Run(ctx, 30*time.Second)
			return nil
		},
	}, nil
}
