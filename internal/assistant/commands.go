package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"regexp"
	"strings"
)

const (
	farewellReply    = "Goodbye! It was nice assisting you. Say 'hey sagar' when you need me."
	noChatReply      = "Sorry, AI access is not configured. You said: %s"
	chatFailureReply = "Sorry, I couldn't reach the AI service. You said: %s"

	youtubeSearchURL = "https://www.youtube.com/results?search_query="
	googleSearchURL  = "https://www.google.com/search?q="
)

var (
	editorOpenPhrases = map[string]bool{
		"open vscode":             true,
		"open vs code":            true,
		"open visual studio code": true,
	}

	editorClosePhrases = map[string]bool{
		"close vscode":             true,
		"close vs code":            true,
		"close visual studio code": true,
	}

	navigationShortcuts = map[string]string{
		"open google":         "www.google.com",
		"open facebook":       "www.facebook.com",
		"open youtube":        "www.youtube.com",
		"open github":         "www.github.com",
		"open stack overflow": "www.stackoverflow.com",
		"open stackoverflow":  "www.stackoverflow.com",
		"open linkedin":       "www.linkedin.com",
	}

	goodbyeTerms = []string{"good bye", "goodbye", "bye", "exit", "quit", "stop"}

	fillerWords = map[string]bool{
		"for": true, "the": true, "a": true, "an": true, "to": true,
		"please": true, "your": true, "this": true, "that": true,
	}

	linkPhrases = map[string]bool{
		"link":                  true,
		"the link":              true,
		"url":                   true,
		"the url":               true,
		"provided link":         true,
		"the provided link":     true,
		"that link":             true,
		"this link":             true,
		"given link":            true,
		"the given link":        true,
		"link you provided":     true,
		"the link you provided": true,
		"link you gave":         true,
		"the link you gave":     true,
	}

	urlRe = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+|\bwww\.[^\s<>"']+`)
)

// IsGoodbye reports whether text equals a goodbye term or contains one as a
// whole word.
func IsGoodbye(text string) bool {
	norm := Normalize(text)
	if norm == "" {
		return false
	}
	words := strings.Fields(norm)
	for _, term := range goodbyeTerms {
		if norm == term || containsPhrase(words, term) {
			return true
		}
	}
	return false
}

// Actions are the side-effecting collaborators of the dispatcher. Songs and
// Chat may be nil when the capability is not installed.
type Actions struct {
	Browser Browser
	Editor  Editor
	Songs   SongLookup
	Chat    Chatter
}

// Dispatcher classifies one utterance into a built-in command or the AI
// fallback and carries it out.
type Dispatcher struct {
	speaker  Speaker
	act      Actions
	observer Observer
}

func NewDispatcher(speaker Speaker, act Actions) *Dispatcher {
	return &Dispatcher{speaker: speaker, act: act}
}

// Dispatch handles utterance against st and reports whether the active
// session should end. It never panics; an internal failure leaves the
// history untouched and keeps the session going.
func (d *Dispatcher) Dispatch(ctx context.Context, st *State, utterance string) (end bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Dispatch failed", "utterance", utterance, "panic", r)
			end = false
		}
	}()

	command := strings.TrimSpace(utterance)
	if command == "" {
		return false
	}
	norm := Normalize(command)

	switch {
	case editorOpenPhrases[norm]:
		d.openEditor(ctx)
		return false

	case editorClosePhrases[norm]:
		d.closeEditor(ctx)
		return false
	}

	if site, ok := navigationShortcuts[norm]; ok {
		log.Info("Navigation shortcut", "site", site)
		d.open(ctx, st, site)
		return false
	}

	if hasVerb(norm, "play") {
		d.play(ctx, st, command)
		return false
	}

	if hasVerb(norm, "search") {
		d.search(ctx, st, command)
		return false
	}

	if IsGoodbye(command) {
		d.say(farewellReply)
		st.History.Append(command, farewellReply)
		return true
	}

	reply := d.complete(ctx, st, command)
	d.say(reply)
	st.History.Append(command, reply)
	if link := ExtractURL(reply); link != "" {
		st.LastURL = link
	}

	return false
}

func (d *Dispatcher) openEditor(ctx context.Context) {
	if d.act.Editor == nil {
		d.say("Sorry, I couldn't open Visual Studio Code.")
		return
	}

	err := d.act.Editor.Open(ctx)
	switch {
	case errors.Is(err, ErrNotInstalled):
		log.Warn("Editor not found", "err", err)
		d.say("Visual Studio Code is not installed in the expected location.")
	case err != nil:
		log.Error("Failed to open editor", "err", err)
		d.say("Sorry, I couldn't open Visual Studio Code.")
	default:
		d.say("Opening Visual Studio Code.")
	}
}

func (d *Dispatcher) closeEditor(ctx context.Context) {
	if d.act.Editor == nil {
		d.say("Sorry, I couldn't close Visual Studio Code.")
		return
	}

	if err := d.act.Editor.Close(ctx); err != nil {
		log.Error("Failed to close editor", "err", err)
		d.say("Sorry, I couldn't close Visual Studio Code.")
		return
	}
	d.say("Visual Studio Code closed.")
}

func (d *Dispatcher) play(ctx context.Context, st *State, command string) {
	rest := commandArgument(command)
	if rest == "" {
		d.say("Please say the song name after 'play'.")
		return
	}

	if isLinkReference(rest) {
		if st.LastURL == "" {
			d.say("Sorry, I don't have a link to play yet.")
			return
		}
		d.say("Playing the link you provided.")
		d.open(ctx, st, st.LastURL)
		return
	}

	song := stripFillers(rest)
	if song == "" {
		d.say("Please say the song name after 'play'.")
		return
	}

	if isURL(song) {
		d.say("Opening the link.")
		d.open(ctx, st, song)
		return
	}

	if d.act.Songs != nil {
		if link, ok := d.act.Songs.Lookup(strings.ToLower(song)); ok {
			d.say(fmt.Sprintf("Playing %s", song))
			d.open(ctx, st, link)
			return
		}
	}

	d.say(fmt.Sprintf("I don't have %s in the library. Opening a web search.", song))
	d.open(ctx, st, youtubeSearchURL+escapeQuery(song))
}

func (d *Dispatcher) search(ctx context.Context, st *State, command string) {
	query := stripFillers(commandArgument(command))
	if query == "" {
		d.say("Please say what you want me to search for.")
		return
	}

	d.say(fmt.Sprintf("Searching for %s", query))
	d.open(ctx, st, googleSearchURL+escapeQuery(query))
}

// open hands link to the browser and remembers it as the last provided URL.
func (d *Dispatcher) open(ctx context.Context, st *State, link string) {
	if d.act.Browser == nil {
		d.say("Sorry, I couldn't open the browser.")
		return
	}
	if err := d.act.Browser.OpenURL(ctx, link); err != nil {
		log.Error("Failed to open url", "url", link, "err", err)
		d.say("Sorry, I couldn't open the browser.")
		return
	}
	st.LastURL = link
}

func (d *Dispatcher) complete(ctx context.Context, st *State, command string) string {
	if d.act.Chat == nil {
		return fmt.Sprintf(noChatReply, command)
	}

	reply, err := d.act.Chat.Complete(ctx, st.History.Turns(), command)
	if err != nil {
		log.Error("Failed to call AI", "err", err)
		return fmt.Sprintf(chatFailureReply, command)
	}
	if strings.TrimSpace(reply) == "" {
		return fmt.Sprintf(chatFailureReply, command)
	}
	return reply
}

func (d *Dispatcher) say(text string) {
	log.Info("Reply", "text", text)
	if d.observer != nil {
		d.observer.Observe(newEvent(EventReply, ModeActiveListening, text))
	}
	if d.speaker == nil {
		return
	}
	if err := d.speaker.Speak(text); err != nil {
		log.Warn("Failed to voice out", "err", err)
	}
}

// ExtractURL returns the first http(s) or www. link in text with trailing
// punctuation removed, or "".
func ExtractURL(text string) string {
	m := urlRe.FindString(text)
	return strings.TrimRight(m, `.,;:!?)]}'"`)
}

// commandArgument returns what follows the command verb: the text after the
// first space, or after the first colon for "play:song".
func commandArgument(command string) string {
	var rest string
	if i := strings.IndexByte(command, ' '); i >= 0 {
		rest = strings.TrimSpace(command[i+1:])
	}
	if rest == "" {
		if i := strings.IndexByte(command, ':'); i >= 0 {
			rest = strings.TrimSpace(command[i+1:])
		}
	}
	return rest
}

func stripFillers(s string) string {
	fields := strings.Fields(s)
	for len(fields) > 0 && fillerWords[strings.ToLower(strings.Trim(fields[0], tokenPunct))] {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

// hasVerb reports whether the normalized command starts with verb. The
// follow-up exemption and the dispatcher share it.
func hasVerb(norm, verb string) bool {
	return strings.HasPrefix(norm, verb)
}

// isLinkReference matches "the link", "that url for me" and the like. Leading
// fillers are dropped before the remainder is measured.
func isLinkReference(rest string) bool {
	words := Words(stripFillers(rest))
	if linkPhrases[Normalize(rest)] || linkPhrases[strings.Join(words, " ")] {
		return true
	}
	if len(words) > 3 {
		return false
	}
	for _, w := range words {
		if w == "link" || w == "url" {
			return true
		}
	}
	return false
}

func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "www.")
}

func escapeQuery(q string) string {
	return strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}
