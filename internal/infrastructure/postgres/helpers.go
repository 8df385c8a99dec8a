package postgres

import (
	"strconv"
	"strings"
)

func itoa(i int) string {
	return strconv.Itoa(i)
}

func addWhere(query string) string {
	if strings.Contains(query, "WHERE") {
		return " AND"
	}
	return " WHERE"
}
