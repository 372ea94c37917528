package services

import (
	"reflect"
	"testing"

	"github.com/akinalp/huddle/models"
)

func TestResolveMentions(t *testing.T) {
	participants := []models.User{
		{ID: "u1", Username: "alice"},
		{ID: "u2", Username: "Bob"},
		{ID: "u3", Email: "john.doe@example.com"},
	}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"no mentions", "hello there", nil},
		{"case insensitive", "hi @BOB", []string{"u2"}},
		{"email handle", "ping @john.doe", []string{"u3"}},
		{"trailing period", "thanks @bob.", []string{"u2"}},
		{"first seen order without duplicates", "@john.doe @bob @john.doe", []string{"u3", "u2"}},
		{"author excluded", "note to self @alice", nil},
		{"unknown handle", "hey @mallory", nil},
		{"email address is not a mention", "write to bob@example.com", nil},
		{"mid-word at sign", "ask alice@bob", nil},
		{"after punctuation", "(@bob),@john.doe", []string{"u2", "u3"}},
		{"start of text", "@bob hi", []string{"u2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveMentions(tt.text, "u1", participants)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ResolveMentions(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
