package models

import "errors"

// Application-wide standard errors
var (
	// Resource errors
	ErrNotFound        = errors.New("resource not found")
	ErrNoDilemmas      = errors.New("no dilemmas found for language")
	ErrNoStoryFlows    = errors.New("no story flows found for language")
	ErrStoryNotFound   = errors.New("story flow not found")
	ErrNodeNotFound    = errors.New("story node not found")
	ErrDilemmaNotFound = errors.New("dilemma not found")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input data")
	ErrInvalidLanguage = errors.New("invalid language parameter")
	ErrInvalidVote     = errors.New("invalid vote")
	ErrTooManyExcluded = errors.New("too many excluded ids")
	ErrNoAnswers       = errors.New("no answers provided")
	ErrTooManyAnswers  = errors.New("too many answers")
	ErrInvalidStory    = errors.New("invalid story flow")

	// Story traversal
	ErrStoryComplete = errors.New("story is complete")

	// AI errors
	ErrAIUnavailable = errors.New("all AI models are unavailable")
	ErrAIBadResponse = errors.New("AI returned an unusable response")
	ErrAITransport   = errors.New("AI provider request failed")

	// Admin auth
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	ErrInternalServer = errors.New("internal server error")
)
