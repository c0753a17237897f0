package models

import "errors"

// Sentinel errors returned by services. Handlers map these to HTTP statuses;
// raw storage errors never reach a client.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientGold  = errors.New("insufficient gold")
	ErrAlreadyInGuild    = errors.New("account already belongs to a guild")
	ErrNotInGuild        = errors.New("account does not belong to this guild")
	ErrGuildNameTaken    = errors.New("guild name already taken")
	ErrAlreadyOpened     = errors.New("loot box already opened")
	ErrAlreadyUnlocked   = errors.New("badge tier already unlocked")
	ErrRequirementNotMet = errors.New("requirement not met")
	ErrChallengeClosed   = errors.New("challenge is outside its active window")
	ErrNegativeDelta     = errors.New("delta must not be negative")
)
