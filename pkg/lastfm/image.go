package lastfm

// imagePreference is the order in which image sizes are chosen.
var imagePreference = []string{"extralarge", "mega", "large", "medium"}

// BestImage picks the most useful image URL from images: the first
// non-empty URL in size order extralarge, mega, large, medium, or else the
// last non-empty URL. It returns "" when no image has a URL.
func BestImage(images []Image) string {
	bySize := make(map[string]string, len(images))
	for _, img := range images {
		if img.URL != "" {
			bySize[img.Size] = img.URL
		}
	}
	for _, size := range imagePreference {
		if u, ok := bySize[size]; ok {
			return u
		}
	}
	for i := len(images) - 1; i >= 0; i-- {
		if images[i].URL != "" {
			return images[i].URL
		}
	}
	return ""
}
