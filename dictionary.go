package main

import (
	"bufio"
	"os"
	"strings"
)

// Dictionary answers whether a submitted word is playable. Word
// validity is an external concern; the engine only consults membership.
type Dictionary interface {
	Valid(word string) bool
}

// fileDictionary is a set loaded from a newline-delimited word list.
type fileDictionary struct {
	words map[string]bool
}

func loadDictionary(path string) (Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := &fileDictionary{
		words: make(map[string]bool),
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if word != "" {
			d.words[word] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *fileDictionary) Valid(word string) bool {
	return d.words[strings.ToUpper(word)]
}

// acceptAll stands in when no wordlist is configured.
type acceptAll struct{}

func (acceptAll) Valid(string) bool { return true }
