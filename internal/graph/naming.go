package graph

import "github.com/go-openapi/inflect"

// SuggestTablename derives a snake_case plural table name from a model class name,
// e.g. "BlogPost" becomes "blog_posts".
func SuggestTablename(modelName string) string {
	if modelName == "" {
		return ""
	}
	return inflect.Pluralize(inflect.Underscore(modelName))
}

// SuggestModelName derives a PascalCase singular class name from a table name,
// e.g. "order_items" becomes "OrderItem".
func SuggestModelName(tablename string) string {
	if tablename == "" {
		return ""
	}
	return inflect.Camelize(inflect.Singularize(tablename))
}
