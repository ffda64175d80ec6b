package models

import "testing"

func TestTextInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      TextInput
		wantErr bool
	}{
		{"empty", TextInput{Text: ""}, true},
		{"whitespace", TextInput{Text: " \t\n"}, true},
		{"text", TextInput{Text: "дайте скидку"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestListQuery_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		q          ListQuery
		wantOffset int
		wantLimit  int
	}{
		{"defaults", ListQuery{}, 0, 20},
		{"negative offset", ListQuery{Offset: -3, Limit: 5}, 0, 5},
		{"caps limit", ListQuery{Offset: 10, Limit: 500}, 10, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.q.Normalize(20, 100)
			if tt.q.Offset != tt.wantOffset || tt.q.Limit != tt.wantLimit {
				t.Errorf("got offset=%d limit=%d, want %d/%d", tt.q.Offset, tt.q.Limit, tt.wantOffset, tt.wantLimit)
			}
		})
	}
}
