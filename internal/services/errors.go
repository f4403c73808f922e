package services

import "errors"

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrNoSummary     = errors.New("article has no summary")
	ErrEmptyResponse = errors.New("empty response from text generation")
	ErrNoTags        = errors.New("text generation returned no tags")
	ErrMissingURL    = errors.New("feed URL is required")
	ErrMissingFields = errors.New("title, content and source are required")

	errStageDone = errors.New("stage already completed for article")
)
