package domain

import "errors"

// Invariant and not-found sentinels. Repositories and services wrap these with
// context; handlers map them to rejections without retry.
var (
	ErrArbreNotFound      = errors.New("decision tree not found")
	ErrTarifNotFound      = errors.New("tariff not found")
	ErrCotisationNotFound = errors.New("membership fee not found")
	ErrArbreVerrouille    = errors.New("decision tree is locked")
	ErrArbreDejaExistant  = errors.New("tariff already has a decision tree")
)
