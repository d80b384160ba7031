// Package repository contains data access logic separated from HTTP handlers.
package repository

import "errors"

// Sentinel errors returned by repositories. Handlers map these to field-level
// validation responses or not-found responses at the boundary.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrEmailExists     = errors.New("email already exists")
	ErrHotelNotFound   = errors.New("hotel not found")
	ErrHotelNameExists = errors.New("hotel name already exists")
)
