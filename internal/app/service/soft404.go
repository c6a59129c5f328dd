package service

import "strings"

// Phrases that mark a page as dead even when the origin returns HTTP 200.
// Many affiliate sites serve an in-body "not found" message with a success
// status, including JSON error bodies from API-backed storefronts.
var soft404Patterns = []string{
	"page not found",
	"product not available",
	"currently unavailable",
	"this item is no longer available",
	"we couldn't find that page",
	"this page doesn't exist",
	"no longer exists",
	"item not found",
	"deal has expired",
	"offer has ended",
	"this deal is no longer available",
	"sorry, this product is unavailable",
	"this product is currently unavailable",
	"looking for something?",
	`"message":"page not found"`,
	`"message": "page not found"`,
	`"message":"deal not found"`,
	`"message": "deal not found"`,
	`"message":"deal expired"`,
	`"message": "deal expired"`,
	`"message":"not found"`,
	`"message": "not found"`,
}

// containsSoft404 reports whether the body snippet reads as a not-found page.
// Matching is a case-insensitive substring scan over the pattern table.
func containsSoft404(snippet string) bool {
	lower := strings.ToLower(snippet)
	for _, pattern := range soft404Patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
