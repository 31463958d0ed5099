package history

import (
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

// Sentinel errors; match with errors.Is.
var (
	ErrOpenFailed   = ferrors.HistoryError("could not open build history database").Build()
	ErrSchemaFailed = ferrors.HistoryError("failed to initialize build history schema").Build()
	ErrRecordFailed = ferrors.HistoryError("failed to record build").Build()
	ErrQueryFailed  = ferrors.HistoryError("failed to query build history").Build()
	ErrNotFound     = ferrors.NewError(ferrors.CategoryNotFound, "build not found").Build()
)

func wrap(sentinel *ferrors.ClassifiedError, err error) error {
	return ferrors.WrapError(err, sentinel.Category(), sentinel.Message()).Build()
}
