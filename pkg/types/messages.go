package types

import "encoding/json"

// Client -> Server. Every frame is one flat JSON object keyed by "type".
type ClientType string

const (
	ClientCreateRoom      ClientType = "create_room"      // playerName
	ClientJoinRoom        ClientType = "join_room"        // roomId, playerName
	ClientRejoinRoom      ClientType = "rejoin_room"      // roomId, seat, token
	ClientReady           ClientType = "ready"            // roomId, seat
	ClientSelectResource  ClientType = "select_resource"  // roomId, seat, resourceId
	ClientRandomResource  ClientType = "random_resource"  // roomId, seat
	ClientSelectCandidate ClientType = "select_candidate" // roomId, seat, candidateId, slot
	ClientCustomCandidate ClientType = "custom_candidate" // roomId, seat, custom
	ClientRedraw          ClientType = "redraw"           // roomId, seat
	ClientSkipTurn        ClientType = "skip_turn"        // roomId, seat
	ClientStartContest    ClientType = "start_contest"    // roomId, seat, roster1, roster2, names
	ClientSyncState       ClientType = "sync_state"       // roomId
	ClientLeaveRoom       ClientType = "leave_room"       // roomId
	ClientRestart         ClientType = "restart"          // roomId, seat
)

type ClientMessage struct {
	Type        ClientType       `json:"type"`
	RoomID      string           `json:"roomId,omitempty"`
	PlayerName  string           `json:"playerName,omitempty"`
	Seat        int              `json:"seat,omitempty"`
	Token       string           `json:"token,omitempty"`
	ResourceID  string           `json:"resourceId,omitempty"`
	CandidateID string           `json:"candidateId,omitempty"`
	Slot        string           `json:"slot,omitempty"`
	Custom      *CustomCandidate `json:"custom,omitempty"`

	// Optional with start_contest. Compared with the room's rosters, which win.
	Roster1 json.RawMessage   `json:"roster1,omitempty"`
	Roster2 json.RawMessage   `json:"roster2,omitempty"`
	Names   map[string]string `json:"names,omitempty"`
}

type CustomCandidate struct {
	Name   string `json:"name"`
	NameEn string `json:"nameEn,omitempty"`
	Season string `json:"season,omitempty"`
	Cost   int    `json:"cost"`
	Slot   string `json:"slot"`
}

// Server -> Client
type ServerType string

const (
	ServerRoomCreated       ServerType = "room_created"
	ServerRoomJoined        ServerType = "room_joined"
	ServerRoomRejoined      ServerType = "room_rejoined"
	ServerPlayerJoined      ServerType = "player_joined"
	ServerPlayerLeft        ServerType = "player_left"
	ServerPlayerReady       ServerType = "player_ready"
	ServerDraftStarted      ServerType = "draft_started"
	ServerResourceSelected  ServerType = "resource_selected"
	ServerResourceRedrawn   ServerType = "resource_redrawn"
	ServerCandidateSelected ServerType = "candidate_selected"
	ServerTurnSkipped       ServerType = "turn_skipped"
	ServerDraftCompleted    ServerType = "draft_completed"
	ServerContestStarted    ServerType = "contest_started"
	ServerContestStream     ServerType = "contest_stream"
	ServerContestFinished   ServerType = "contest_finished"
	ServerStateSync         ServerType = "state_sync"
	ServerRoomRestarted     ServerType = "room_restarted"
	ServerError             ServerType = "error"
)

type ServerMessage struct {
	Type       ServerType     `json:"type"`
	RoomID     string         `json:"roomId,omitempty"`
	Seat       int            `json:"seat,omitempty"`
	Token      string         `json:"token,omitempty"`
	RoomState  *RoomState     `json:"roomState,omitempty"`
	ResourceID string         `json:"resourceId,omitempty"`
	Candidate  *CandidateData `json:"candidateData,omitempty"`
	Slot       string         `json:"slot,omitempty"`
	Stream     *ContestStream `json:"stream,omitempty"`
	Series     *SeriesResult  `json:"series,omitempty"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// Error codes carried by ServerError.
const (
	CodeBadRequest              = "BAD_REQUEST"
	CodeIllegalAction           = "ILLEGAL_ACTION"
	CodeResourceAlreadyUsed     = "RESOURCE_ALREADY_USED"
	CodeCandidateAlreadyClaimed = "CANDIDATE_ALREADY_CLAIMED"
	CodeInsufficientBudget      = "INSUFFICIENT_BUDGET"
	CodeSlotOccupied            = "SLOT_OCCUPIED"
	CodeIneligibleSlot          = "INELIGIBLE_SLOT"
	CodeUnknownCandidate        = "UNKNOWN_CANDIDATE"
	CodeRoomNotFound            = "ROOM_NOT_FOUND"
	CodeRoomFull                = "ROOM_FULL"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeNotInRoom               = "NOT_IN_ROOM"
	CodeAlreadyInRoom           = "ALREADY_IN_ROOM"
	CodeContestStarted          = "CONTEST_ALREADY_STARTED"
	CodeInternal                = "INTERNAL"
)

func ErrorMessage(code, message string) ServerMessage {
	return ServerMessage{Type: ServerError, Code: code, Message: message}
}
