package service

import (
	"strings"
	"unicode"

	pgvector "github.com/pgvector/pgvector-go"
)

// EmbeddingDims matches the vector(3) column of recipes
const EmbeddingDims = 3

// GenerateEmbedding returns a cheap deterministic embedding of text:
// letter count, vowel share and word count. Search orders by distance to it.
func GenerateEmbedding(text string) pgvector.Vector {
	text = strings.ToLower(text)
	var letters, vowels float32
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if strings.ContainsRune("aeiouаеёиоуыэюя", r) {
			vowels++
		}
	}
	var share float32
	if letters > 0 {
		share = vowels / letters
	}
	words := float32(len(strings.Fields(text)))
	return pgvector.NewVector([]float32{letters, share, words})
}

func recipeEmbedding(name, text string) *pgvector.Vector {
	v := GenerateEmbedding(name + " " + text)
	return &v
}
