package welcome

import "errors"

var (
	ErrNoTranslations   = errors.New("welcome: translation list is empty")
	ErrNilCallback      = errors.New("welcome: completion callback is nil")
	ErrInvalidDurations = errors.New("welcome: dwell and exit hold must be positive")
	ErrInvalidLanguage  = errors.New("welcome: invalid language code")
)
