package main

import (
	"net/http"
	"strconv"
)

func parseIntQuery(r *http.Request, name string, fallback int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func parseBoolQuery(r *http.Request, name string) bool {
	val, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return false
	}
	return val
}
