package auth

import "testing"

func TestFileTokenStorage_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileTokenStorage(dir)

	token := &OAuthToken{AccessToken: "abc", TokenType: "Bearer", ExpiresIn: 3600}
	if err := storage.Save("key1", token); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	loaded, err := storage.Load("key1")
	if err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if loaded.AccessToken != "abc" || loaded.TokenType != "Bearer" {
		t.Errorf("unexpected loaded token: %+v", loaded)
	}
}

func TestFileTokenStorage_LoadMissingKeyReturnsNilNoError(t *testing.T) {
	storage := NewFileTokenStorage(t.TempDir())
	tok, err := storage.Load("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != nil {
		t.Errorf("expected nil token for a missing key, got %+v", tok)
	}
}
