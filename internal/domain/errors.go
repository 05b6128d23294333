package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a profile has no live quiz session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionEnded is returned when an operation targets a session that already ended.
	ErrSessionEnded = errors.New("quiz session already ended")
	// ErrNothingToResume indicates no usable snapshot exists for the profile.
	ErrNothingToResume = errors.New("no session to resume")
	// ErrNoQuestions indicates the filtered question list produced no groups.
	ErrNoQuestions = errors.New("no questions to partition")
	// ErrInvalidGroupIndex indicates a group index outside the session's groups.
	ErrInvalidGroupIndex = errors.New("invalid group index")
	// ErrQuestionNotFound indicates a question ID is absent from a group's working order.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateQuestion indicates two input questions share an ID.
	ErrDuplicateQuestion = errors.New("duplicate question id")
	// ErrMalformedQuestion indicates missing options or an unresolvable correct option.
	ErrMalformedQuestion = errors.New("malformed question")
	// ErrAlreadyAttempted indicates the question already holds an attempt.
	ErrAlreadyAttempted = errors.New("question already attempted")
	// ErrOptionNotFound indicates a selected option is not among the displayed options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrLifelineUnavailable indicates the lifeline was used or the timer is not running.
	ErrLifelineUnavailable = errors.New("lifeline unavailable")
	// ErrUnknownSetting indicates a settings toggle name that does not exist.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrRecordNotFound is returned by key/value stores for missing keys.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidFilter indicates an unknown review filter kind.
	ErrInvalidFilter = errors.New("invalid review filter")
)
