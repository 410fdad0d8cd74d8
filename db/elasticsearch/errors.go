package elasticsearch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/wrap"
)

const elasticIndexNotFoundException = "index_not_found_exception"

func wrapElasticError(err error, message string) error {
	return wrap.Error(describeElasticError(err), message)
}

func wrapElasticErrorf(err error, format string, args ...any) error {
	return wrap.Errorf(describeElasticError(err), format, args...)
}

func isIndexNotFound(err error) bool {
	var elasticErr *types.ElasticsearchError
	return errors.As(err, &elasticErr) &&
		elasticErr.ErrorCause.Type == elasticIndexNotFoundException
}

// The message of an Elasticsearch error response only includes its status, so this replaces it with
// the reason of the response and its root causes. Other errors are returned as is.
func describeElasticError(err error) error {
	var elasticErr *types.ElasticsearchError
	if !errors.As(err, &elasticErr) {
		return err
	}

	message := fmt.Sprintf("%s, status %d", describeCause(elasticErr.ErrorCause), elasticErr.Status)
	if len(elasticErr.ErrorCause.RootCause) == 0 {
		return errors.New(message)
	}

	rootCauses := make([]error, 0, len(elasticErr.ErrorCause.RootCause))
	for _, cause := range elasticErr.ErrorCause.RootCause {
		rootCauses = append(rootCauses, errors.New(describeCause(cause)))
	}
	return wrap.Errors(message, rootCauses...)
}

// Follows the caused_by chain, e.g. "failed to parse [row_number] (mapper_parsing_exception):
// For input string: "x" (number_format_exception)".
func describeCause(cause types.ErrorCause) string {
	var description strings.Builder

	for current := &cause; current != nil; current = current.CausedBy {
		if current != &cause {
			description.WriteString(": ")
		}

		if current.Reason == nil {
			description.WriteString(current.Type)
		} else {
			fmt.Fprintf(&description, "%s (%s)", *current.Reason, current.Type)
		}
	}

	return description.String()
}
