package services

import "errors"

// Виды ошибок. Каждая доменная ошибка относится ровно к одному виду, проверка через errors.Is.
var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("operation not allowed for the current user")
	ErrNotFound         = errors.New("requested resource not found")
	ErrConflict         = errors.New("resource already exists")
	ErrValidationFailed = errors.New("validation failed")
)

var kinds = []error{ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrConflict, ErrValidationFailed}

type domainError struct {
	msg  string
	kind error
}

func (e *domainError) Error() string { return e.msg }

func (e *domainError) Is(target error) bool { return target == e.kind }

func newError(kind error, msg string) error {
	return &domainError{msg: msg, kind: kind}
}

// ValidationError создает ошибку валидации с пользовательским сообщением.
func ValidationError(msg string) error {
	return newError(ErrValidationFailed, msg)
}

// KindOf возвращает вид ошибки или nil для внутренних ошибок.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

var (
	// Аутентификация
	ErrInvalidCredentials = newError(ErrUnauthenticated, "invalid email or password")

	// Ошибки валидации
	ErrPasswordTooShort   = newError(ErrValidationFailed, "password must be at least 8 characters")
	ErrInvalidEmail       = newError(ErrValidationFailed, "email address is invalid")
	ErrInvalidScore       = newError(ErrValidationFailed, "score must be a finite decimal number")
	ErrInviteToPublicClub = newError(ErrValidationFailed, "public clubs do not need invitations")
	ErrUploadsDisabled    = newError(ErrValidationFailed, "image uploads are not configured")
	ErrInvalidImage       = newError(ErrValidationFailed, "unsupported image type")

	// Не найдено
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrClubNotFound       = newError(ErrNotFound, "club not found")
	ErrChallengeNotFound  = newError(ErrNotFound, "challenge not found")
	ErrEntryNotFound      = newError(ErrNotFound, "challenge entry not found")
	ErrInvitationNotFound = newError(ErrNotFound, "invitation not found")

	// Конфликты
	ErrUserEmailConflict         = newError(ErrConflict, "email address is already in use")
	ErrAlreadyMember             = newError(ErrConflict, "user is already a member of this club")
	ErrInvitationConflict        = newError(ErrConflict, "user has already been invited to this club")
	ErrInvitationAlreadyAccepted = newError(ErrConflict, "invitation has already been accepted")

	// Права доступа
	ErrNotClubAdmin       = newError(ErrForbidden, "only club admins can perform this action")
	ErrNotClubMember      = newError(ErrForbidden, "only club members can perform this action")
	ErrInvitationRequired = newError(ErrForbidden, "an invitation is required to join this private club")
	ErrInvitationNotYours = newError(ErrForbidden, "invitation belongs to another user")
	ErrNotEntryOwner      = newError(ErrForbidden, "only the author can edit this entry")
)
