package model

import (
	"fmt"
	"strings"
)

type ActorSource string

const (
	ActorSourceAdmin    ActorSource = "ADMIN"
	ActorSourceTelegram ActorSource = "TG"
	ActorSourceSystem   ActorSource = "SYSTEM"
)

// Actor identifies who requested a state transition.
type Actor struct {
	Source   ActorSource
	Name     string
	NumberID int64
}

func AdminActor(name string) Actor {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "admin"
	}
	return Actor{Source: ActorSourceAdmin, Name: name}
}

func TelegramActor(username string, userID int64) Actor {
	return Actor{Source: ActorSourceTelegram, Name: username, NumberID: userID}
}

// String renders the actor for audit notes, e.g. "TG:@alice(42)" or "ADMIN:ops".
func (a Actor) String() string {
	switch a.Source {
	case ActorSourceTelegram:
		name := a.Name
		if name == "" {
			name = "unknown"
		}
		return fmt.Sprintf("TG:@%s(%d)", strings.TrimPrefix(name, "@"), a.NumberID)
	case "":
		return string(ActorSourceSystem)
	default:
		if a.Name == "" {
			return string(a.Source)
		}
		return fmt.Sprintf("%s:%s", a.Source, a.Name)
	}
}
