package utils

import "github.com/gosimple/slug"

// Slugify turns a display name into a lower-case URL slug
// ("Home & Living" -> "home-and-living").
func Slugify(name string) string {
	return slug.Make(name)
}
