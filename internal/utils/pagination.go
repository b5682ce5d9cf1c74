package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
)

// PageParams holds offset pagination parameters.
type PageParams struct {
	Skip  int
	Limit int
}

// GetPageParams extracts skip/limit query parameters. Negative or malformed
// values fall back to the defaults. No upper bound is enforced on limit.
func GetPageParams(c *gin.Context) PageParams {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultListLimit)))
	if err != nil || limit <= 0 {
		limit = constants.DefaultListLimit
	}

	return PageParams{
		Skip:  skip,
		Limit: limit,
	}
}
