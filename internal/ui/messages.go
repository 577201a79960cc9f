package ui

import (
	"tgvidbot/internal/model"
	"tgvidbot/internal/progress"
)

type startMsg struct{}

type jobUpdateMsg struct {
	U progress.Update
}

type jobInfoMsg struct {
	JobID string
	Info  model.VideoInfo
}

type jobResultMsg struct {
	R    progress.Result
	Info *model.VideoInfo // nil when resolving failed
}

type allDoneMsg struct{}
