package loans

import "errors"

var (
	ErrRecordNotFound   = errors.New("book record not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrBookUnavailable  = errors.New("no copies of this book are available")
	ErrAlreadyRequested = errors.New("you already have a pending request for this book")
	ErrConcurrentUpdate = errors.New("book record was changed by another request")
	ErrForbidden        = errors.New("not allowed to act on this book record")
	ErrUserInactive     = errors.New("account is not approved or has been removed")
)
