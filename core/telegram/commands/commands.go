// Package commands defines the bot command metadata shared between the
// registry and the routers.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command binds a handler to one slash command. Description feeds the
// platform command menu; Hidden and AdminOnly commands, such as the
// pack inspection command, stay out of it. Aliases register the same
// handler under additional names.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
