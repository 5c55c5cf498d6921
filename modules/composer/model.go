package composer

import (
	"time"

	"scene-prompt-server/modules/common/media"
	"scene-prompt-server/modules/scene"
)

// Action - 재진입 guard 단위
type Action string

const (
	ActionDevelop  Action = "develop"
	ActionGenerate Action = "generate"
)

// DevelopSource - develop 입력 종류
type DevelopSource string

const (
	SourceText  DevelopSource = "text"
	SourceImage DevelopSource = "image"
)

// DevelopState - develop 상태
type DevelopState string

const (
	DevelopIdle       DevelopState = "idle"
	DevelopRequesting DevelopState = "requesting"
	DevelopSuccess    DevelopState = "success"
	DevelopFailed     DevelopState = "failed"
)

// GenerateState - generate-final 상태
type GenerateState string

const (
	GenerateIdle          GenerateState = "idle"
	GenerateComposingBase GenerateState = "composing_base"
	GenerateBaseFailed    GenerateState = "base_failed"
	GenerateFanningOut    GenerateState = "fanning_out"
	GenerateAllSucceeded  GenerateState = "all_succeeded"
	GenerateAnyFailed     GenerateState = "any_failed"
)

// ArtifactSet - 최종 결과물 5종 (항상 통째로 교체)
type ArtifactSet struct {
	Source      string           `json:"source"`
	English     string           `json:"english"`
	Listing     string           `json:"listing"`
	JSON        string           `json:"json"`
	Story       string           `json:"story"`
	Scene       scene.Descriptor `json:"scene"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// Snapshot - 워크스페이스 상태 (API / WebSocket 응답용)
type Snapshot struct {
	SessionID     string           `json:"sessionId"`
	Variant       scene.Variant    `json:"variant"`
	Idea          string           `json:"idea"`
	Image         *ImageInfo       `json:"image,omitempty"`
	Scene         scene.Descriptor `json:"scene"`
	Artifacts     *ArtifactSet     `json:"artifacts,omitempty"`
	Error         string           `json:"error,omitempty"`
	DevelopState  DevelopState     `json:"developState"`
	GenerateState GenerateState    `json:"generateState"`
	Loading       bool             `json:"loading"`

	Resettable      bool `json:"resettable"`
	CanDevelopText  bool `json:"canDevelopText"`
	CanDevelopImage bool `json:"canDevelopImage"`
	CanGenerate     bool `json:"canGenerate"`
}

// ImageInfo - 첨부 이미지 메타데이터 (본문 제외)
type ImageInfo struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// attachedImage - 첨부 이미지
type attachedImage struct {
	name    string
	payload *media.Payload
}

// Event - WebSocket 으로 전달되는 상태 변경
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Workspace *Snapshot `json:"workspace,omitempty"`
	At        time.Time `json:"at"`
}

// Event types
const (
	EventStateChanged  = "state_changed"
	EventSessionClosed = "session_closed"
	EventClientJoined  = "client_joined"
)
