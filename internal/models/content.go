package models

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Prompt is one unit of test content: a word, a situation, or a picture.
type Prompt struct {
	Text     string `yaml:"text" json:"text"`
	ImageURL string `yaml:"image_url,omitempty" json:"imageUrl,omitempty"`
}

// Content holds the prompt banks for every test type, loaded once at startup.
type Content struct {
	WordAssociation   []Prompt `yaml:"word_association"`
	SituationReaction []Prompt `yaml:"situation_reaction"`
	PictureStory      []Prompt `yaml:"picture_story"`
	PhotoStory        []Prompt `yaml:"photo_story"`
}

// LoadContent reads and parses the content.yaml file.
func LoadContent(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}

	var content Content
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content YAML: %w", err)
	}

	for _, t := range AllTestTypes() {
		if len(content.Bank(t)) == 0 {
			return nil, fmt.Errorf("content file has no prompts for test type %q", t)
		}
	}

	return &content, nil
}

// Bank returns the prompt bank for a test type.
func (c *Content) Bank(t TestType) []Prompt {
	switch t {
	case WordAssociation:
		return c.WordAssociation
	case SituationReaction:
		return c.SituationReaction
	case PictureStory:
		return c.PictureStory
	case PhotoStory:
		return c.PhotoStory
	}
	return nil
}

// PromptAt returns the bank prompt at the given index.
func (c *Content) PromptAt(t TestType, bankIndex int64) (Prompt, bool) {
	bank := c.Bank(t)
	if bankIndex < 0 || bankIndex >= int64(len(bank)) {
		return Prompt{}, false
	}
	return bank[bankIndex], true
}

// SampleOrder draws a shuffled order of n bank indexes for a new session.
// When the bank is smaller than n the whole bank is used.
func (c *Content) SampleOrder(t TestType, n int) []int64 {
	bank := c.Bank(t)
	order := make([]int64, len(bank))
	for i := range order {
		order[i] = int64(i)
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	if n > 0 && n < len(order) {
		order = order[:n]
	}
	return order
}
