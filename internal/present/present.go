// Package present turns session snapshots into the text a participant reads.
package present

import (
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
)

// Message keys double as the English text.
const (
	msgAwaitingHost   = "Waiting for the host to join"
	msgHostOnboarding = "You joined first. You are the host.\nYou can close entries."
	msgViewer         = "You are a viewer. You can join the game."
	msgEntered        = "You have entered.\nWaiting for the host to close entries."
	msgRoundStart     = "Game started. It ends in about %d seconds and entries reopen."
	msgRoleHost       = "You are the host."
	msgSatOut         = "You did not enter this round."
	msgTookPart       = "You entered this round."
	msgNoEntrants     = "No one entered."
	msgEntrants       = "Entrants this round"
	msgEntrant        = "ID: %s"
	msgTicksLeft      = "%d ticks left"
	msgEnroll         = "Enter"
	msgClose          = "Close entries"
	msgQuit           = "Quit"
)

var supported = []language.Tag{language.English, language.Japanese}

var matcher = language.NewMatcher(supported)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	_ = b.Set(language.English, msgTicksLeft, plural.Selectf(1, "%d",
		plural.One, "%d tick left",
		plural.Other, "%d ticks left",
	))
	for _, key := range []string{
		msgAwaitingHost, msgHostOnboarding, msgViewer, msgEntered, msgRoundStart,
		msgRoleHost, msgSatOut, msgTookPart, msgNoEntrants, msgEntrants, msgEntrant,
		msgEnroll, msgClose, msgQuit,
	} {
		_ = b.SetString(language.English, key, key)
	}

	ja := map[string]string{
		msgAwaitingHost:   "放送者のjoinを待っています",
		msgHostOnboarding: "あなたが一番最初にjoinしました。あなたが放送者です。\n参加者の受付を終了することができます",
		msgViewer:         "あなたは視聴者です。ゲームに参加することができます。",
		msgEntered:        "あなたは参加しました。\n放送者の受付終了を待っています",
		msgRoundStart:     "ゲーム開始。%d秒ほどで終了し、また募集に戻ります",
		msgRoleHost:       "あなたは放送者です。",
		msgSatOut:         "あなたは今回参加しませんでした",
		msgTookPart:       "あなたは今回参加しました",
		msgNoEntrants:     "参加者はいませんでした",
		msgEntrants:       "今回の参加者",
		msgEntrant:        "ID:%sさん",
		msgTicksLeft:      "残り%dティック",
		msgEnroll:         "参加する",
		msgClose:          "参加締め切り",
		msgQuit:           "終了",
	}
	for key, text := range ja {
		_ = b.SetString(language.Japanese, key, text)
	}
	return b
}

// Printer renders snapshots in one language.
type Printer struct {
	p   *message.Printer
	tag language.Tag
	cfg engine.Config
}

// New picks the closest supported language for lang; anything unknown reads English.
func New(lang string, cfg engine.Config) *Printer {
	tag, _, _ := matcher.Match(language.Make(lang))
	base, _ := tag.Base()
	tag = language.Make(base.String())
	return &Printer{
		p:   message.NewPrinter(tag, message.Catalog(newCatalog())),
		tag: tag,
		cfg: cfg,
	}
}

func (p *Printer) Lang() language.Tag { return p.tag }

// Info is the main status text for the snapshot's phase and the local role.
func (p *Printer) Info(s engine.Snapshot) string {
	switch s.Phase {
	case engine.PhaseAwaitingHost:
		return p.p.Sprintf(msgAwaitingHost)

	case engine.PhaseInitializing, engine.PhaseEnrolling:
		switch {
		case s.IsLocalHost:
			return p.p.Sprintf(msgHostOnboarding)
		case s.IsLocalParticipant:
			return p.p.Sprintf(msgEntered)
		default:
			return p.p.Sprintf(msgViewer)
		}

	case engine.PhaseRoundStarting, engine.PhaseRoundRunning:
		return p.roundText(s)
	}
	return ""
}

func (p *Printer) roundText(s engine.Snapshot) string {
	lines := []string{p.p.Sprintf(msgRoundStart, int(p.cfg.RoundDuration.Seconds()))}
	switch {
	case s.IsLocalHost:
		lines = append(lines, p.p.Sprintf(msgRoleHost))
	case s.IsLocalParticipant:
		lines = append(lines, p.p.Sprintf(msgTookPart))
	default:
		lines = append(lines, p.p.Sprintf(msgSatOut))
	}

	if len(s.Roster) == 0 {
		lines = append(lines, p.p.Sprintf(msgNoEntrants))
	} else {
		lines = append(lines, p.p.Sprintf(msgEntrants))
		for _, id := range s.Roster {
			lines = append(lines, p.p.Sprintf(msgEntrant, id))
		}
	}
	return strings.Join(lines, "\n")
}

// Countdown is empty outside a running round.
func (p *Printer) Countdown(s engine.Snapshot) string {
	if s.Phase != engine.PhaseRoundRunning {
		return ""
	}
	return p.p.Sprintf(msgTicksLeft, s.TicksRemaining)
}

func (p *Printer) EnrollLabel() string { return p.p.Sprintf(msgEnroll) }

func (p *Printer) CloseLabel() string { return p.p.Sprintf(msgClose) }

func (p *Printer) QuitLabel() string { return p.p.Sprintf(msgQuit) }
