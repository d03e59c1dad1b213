package cmd

import (
	"log"

	"github.com/fatih/color"
	"github.com/roffe/vcican"
)

var (
	red    = color.New(color.FgRed).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
	cyan   = color.New(color.FgCyan).SprintfFunc()
)

// printer turns session events into console status lines.
type printer struct {
	debug   bool
	quietTx bool
}

func (p *printer) event(e vcican.Event) {
	switch e.Type {
	case vcican.EventTypeError:
		log.Println(red("%s", e.Details))
	case vcican.EventTypeWarning:
		log.Println(yellow("%s", e.Details))
	case vcican.EventTypeDebug:
		if p.debug {
			log.Println(e.Details)
		}
	default:
		switch e.Dir {
		case vcican.Incoming:
			if p.debug && e.Frame != nil {
				log.Println(green("%s", e.Details) + " || " + e.Frame.ColorString())
				return
			}
			log.Println(green("%s", e.Details))
		case vcican.Outgoing:
			if !p.quietTx {
				log.Println(cyan("%s", e.Details))
			}
		default:
			log.Println(e.Details)
		}
	}
}

func (p *printer) message(msg string) {
	log.Println(msg)
}
