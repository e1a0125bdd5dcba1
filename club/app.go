package club

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/physhka/runclub-bot/club/flows"
	"github.com/physhka/runclub-bot/club/handlers"
	"github.com/physhka/runclub-bot/club/scheduler"
	"github.com/physhka/runclub-bot/club/storage"
	corebootstrap "github.com/physhka/runclub-bot/core/bootstrap"
	coretelegram "github.com/physhka/runclub-bot/core/telegram"
	"github.com/physhka/runclub-bot/core/telegram/commands"
	tghelpers "github.com/physhka/runclub-bot/core/telegram/helpers"
	"github.com/physhka/runclub-bot/core/telegram/router"
	"github.com/physhka/runclub-bot/core/telegram/state"
)

// App is the fully wired bot application.
type App struct {
	cfg *Config

	fsm      state.Manager
	flows    *flows.Flows
	handlers *handlers.Handlers

	users  *storage.Users
	events *storage.Events
	regs   *storage.Registrations
}

// Bootstrap initializes logging, storage, dialogues, and handlers.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("club: nil config")
	}

	res, err := corebootstrap.Run(corebootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:    cfg,
		fsm:    state.NewMemoryManager(),
		users:  storage.NewUsers(res.DB),
		events: storage.NewEvents(res.DB),
		regs:   storage.NewRegistrations(res.DB),
	}

	app.handlers = handlers.New(handlers.Config{
		AdminIDs: cfg.Club.AdminIDs,
		Cities:   cfg.Club.Cities,
		BotName:  cfg.Core.Telegram.Name,
	}, app.users, app.events, app.regs, nil, app.fsm)

	app.flows, err = flows.New(flows.Deps{
		Manager:       app.fsm,
		Users:         app.users,
		Events:        app.events,
		Registrations: app.regs,
		Cities:        cfg.Club.Cities,
		BotName:       cfg.Core.Telegram.Name,
		Menu:          app.handlers.Menu,
	})
	if err != nil {
		return nil, fmt.Errorf("club: flows: %w", err)
	}
	app.handlers.SetFlows(app.flows)
	app.fsm.SetFallback(app.handlers.Menu)

	return app, nil
}

// TelegramRunOptions assembles the registry, routes, and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	h := a.handlers

	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Открыть меню",
		Aliases:     []string{"menu"},
	})
	reg.RegisterCommand("/promote", commands.Command{
		Handler:     h.Promote,
		Description: "Назначить администратора",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/demote", commands.Command{
		Handler:     h.Demote,
		Description: "Разжаловать администратора",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/ban", commands.Command{
		Handler:     h.Ban,
		Description: "Заблокировать пользователя",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/unban", commands.Command{
		Handler:     h.Unban,
		Description: "Разблокировать пользователя",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/admins", commands.Command{
		Handler:     h.Admins,
		Description: "Список администраторов",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/forget", commands.Command{
		Handler:     h.Forget,
		Description: "Удалить данные пользователя",
		AdminOnly:   true,
		Hidden:      true,
	})

	callbackHandlers := map[string]tele.HandlerFunc{
		flows.CallbackCancel: h.Cancel,
		// City buttons feed the active dialogue step directly.
		flows.CallbackEventCity: func(c tele.Context) error {
			if a.fsm.InProgress(c.Sender().ID) {
				return a.fsm.HandleActive(c)
			}
			return nil
		},
		handlers.CallbackEvents:      h.Events,
		handlers.CallbackMyRaces:     h.MyRaces,
		handlers.CallbackCreateEvent: h.StartCreateEvent,
		handlers.CallbackEditEvent:   h.StartEditEvent,
		handlers.CallbackDeleteEvent: h.StartDeleteEvent,
		handlers.CallbackRoster:      h.Roster,
		handlers.CallbackSignup:      h.Signup,
		handlers.CallbackLateness:    h.SetLateness,
		handlers.CallbackCityMenu:    h.CityMenu,
		handlers.CallbackSetCity:     h.SetCity,
	}
	for key, handler := range callbackHandlers {
		if err := reg.RegisterCallback(key, handler); err != nil {
			return coretelegram.RunOptions{}, err
		}
	}
	reg.AllowInFlow(flows.CallbackCancel, flows.CallbackEventCity)
	reg.SetTextFallback(h.Fallback)

	routes := router.TextRoutes(a.fsm, reg, router.TextOptions{
		UnknownText: h.Fallback,
		AllowAdmin:  h.IsAdmin,
	})
	routes = append(routes, router.CallbackRoute(a.fsm, reg, router.CallbackOptions{
		BlockedInFlow: func(c tele.Context) error {
			return tghelpers.SendText(c, "Сначала завершите текущее действие или нажмите «Отмена».")
		},
	}))
	routes = append(routes, router.CommandRoutes(a.fsm, reg, router.CommandRouteOptions{
		AllowAdmin: h.IsAdmin,
	})...)

	middlewares := coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil)
	middlewares = append(middlewares,
		coretelegram.Middleware{Name: "resolve_user", Use: h.ResolveUser},
		coretelegram.Middleware{Name: "drop_blocked", Use: h.DropBlocked},
	)

	var sched *scheduler.Scheduler

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: middlewares,
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			var err error
			sched, err = scheduler.New(scheduler.Options{
				Events:        a.events,
				Registrations: a.regs,
				Notifier:      botNotifier{bot: rt.Bot},
				Window:        time.Duration(a.cfg.Club.ReminderWindowMinutes) * time.Minute,
				Spec:          a.cfg.Club.ReminderSpec,
			})
			if err != nil {
				return err
			}
			sched.Start()
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			if sched != nil {
				sched.Stop()
			}
			return nil
		},
	}, nil
}

// botNotifier adapts the bot transport to the scheduler's Notifier.
type botNotifier struct {
	bot *tele.Bot
}

func (n botNotifier) NotifyHTML(userID int64, text string) error {
	_, err := n.bot.Send(&tele.User{ID: userID}, text, &tele.SendOptions{ParseMode: tele.ModeHTML})
	return err
}

func (n botNotifier) NotifyPhoto(userID int64, photoID, caption string) error {
	photo := &tele.Photo{File: tele.File{FileID: photoID}, Caption: caption}
	_, err := n.bot.Send(&tele.User{ID: userID}, photo, &tele.SendOptions{ParseMode: tele.ModeHTML})
	return err
}
