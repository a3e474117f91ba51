package model

import "strings"

// FormatBreedName turns "breed_name" into "Breed Name".
func FormatBreedName(breed string) string {
	words := strings.Split(breed, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// AgeText describes a dog's life stage.
func AgeText(age int) string {
	switch {
	case age < 1:
		return "Puppy"
	case age < 3:
		return "Young"
	case age < 8:
		return "Adult"
	default:
		return "Senior"
	}
}
