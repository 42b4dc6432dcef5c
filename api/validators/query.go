package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	pkgpagination "github.com/givefi/givefi-backend/pkg/pagination"
)

// PaginationParams reads the limit and cursor query parameters. Limit bounds
// are enforced later by the service through pagination.NormalizeLimit.
func PaginationParams(r *http.Request) (pkgpagination.Params, error) {
	params := pkgpagination.Params{
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		return params, nil
	}

	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit < 0 {
		return pkgpagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a non-negative integer")
	}
	params.Limit = limit
	return params, nil
}
