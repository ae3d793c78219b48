package main

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/scenestudio/scene-studio-bot/scene"
)

type BotState struct {
	mu       sync.Mutex
	sessions map[int64]*UserSession
}

func (b *Bot) NewBotState() BotState {
	return BotState{
		sessions: make(map[int64]*UserSession),
	}
}

// getUserSession returns the session for a user, creating one on first
// contact. New sessions start with the comprehensive persona.
func (bs *BotState) getUserSession(userID int64, sender MessageSender) *UserSession {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if session, ok := bs.sessions[userID]; ok {
		return session
	}
	session := &UserSession{
		userID:  userID,
		sender:  sender,
		persona: scene.PersonaComprehensive,
	}
	bs.sessions[userID] = session
	log.Info().Int64("userId", userID).Msg("new user session created")
	return session
}
