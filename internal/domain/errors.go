package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidServings  = errors.New("invalid servings")
	ErrInvalidNutrition = errors.New("invalid nutrition")
	ErrInvalidSavedAt   = errors.New("invalid saved_at")
)
