package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// 推理引擎的完整提示与回复走独立的 transcript 日志，便于离线审计 agent run。

var (
	trMu          sync.Mutex
	trLog         *log.Logger
	trDumpPayload bool
)

func SetTranscriptWriter(w io.Writer) {
	trMu.Lock()
	defer trMu.Unlock()
	if w == nil {
		trLog = nil
		return
	}
	trLog = log.New(w, "", log.LstdFlags)
}

func EnablePayloadDump(enabled bool) {
	trMu.Lock()
	trDumpPayload = enabled
	trMu.Unlock()
}

type trSection struct {
	title string
	body  string
}

func writeTranscript(kind, model, runID string, sections []trSection) {
	trMu.Lock()
	l := trLog
	trMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[reasoning][" + kind + "]")
	if model != "" {
		b.WriteString("[" + model + "]")
	}
	if runID != "" {
		b.WriteString("[" + runID + "]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := sec.title
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- " + t + " ---\n")
		b.WriteString(sec.body)
		if !strings.HasSuffix(sec.body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

func LogReasoningRequest(model, runID, systemPrompt, userPrompt string) {
	writeTranscript("request", model, runID, []trSection{
		{title: "SYSTEM", body: systemPrompt},
		{title: "USER", body: userPrompt},
	})
}

func LogReasoningResponse(model, runID, raw string) {
	writeTranscript("response", model, runID, []trSection{{title: "RAW", body: raw}})
}

// LogReasoningPayload 仅在开启 dump 时记录原始 HTTP 请求体。
func LogReasoningPayload(model, payload string) {
	trMu.Lock()
	enabled := trDumpPayload
	trMu.Unlock()
	if !enabled {
		return
	}
	text := strings.TrimSpace(payload)
	if text == "" {
		return
	}
	writeTranscript("payload", model, "", []trSection{{title: "PAYLOAD", body: text}})
}
