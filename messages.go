package main

// Messages coming from clients. One closed union, switched exhaustively
// in the read pump; unknown types are dropped with a log entry.
type ClientMessage struct {
	Type        string   `json:"type"`                     // "find_game", "cancel_search", "update_wager", "confirm_wager", "leave_wager", "player_ready", "cancel_ready", "submit_words", "reconnect"
	Mode        string   `json:"mode,omitempty"`           // find_game: "casual" or "wagered"
	SessionID   string   `json:"session_id,omitempty"`     // wager/ready/reconnect messages
	Wager       WagerMap `json:"wager,omitempty"`          // update_wager / confirm_wager
	Words       []string `json:"words,omitempty"`          // submit_words
	OldPlayerID string   `json:"old_player_id,omitempty"`  // reconnect
}

// Messages sent to clients, one struct per kind.

// ErrorMessage reports queueing, routing, phase, and escrow failures
// to the offending client only.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SearchingMessage struct {
	Type string `json:"type"` // "searching"
	Mode string `json:"mode"`
}

type SearchCancelledMessage struct {
	Type string `json:"type"` // "search_cancelled"
}

type GameMatchedMessage struct {
	Type         string   `json:"type"` // "game_matched"
	SessionID    string   `json:"session_id"`
	Board        []string `json:"board"`
	Duration     int      `json:"duration"` // seconds
	WagerMode    bool     `json:"wager_mode"`
	OpponentName string   `json:"opponent_name"`
}

type WagerUpdatedMessage struct {
	Type  string   `json:"type"` // "wager_updated"
	Wager WagerMap `json:"wager"`
}

type OpponentWagerConfirmedMessage struct {
	Type string `json:"type"` // "opponent_wager_confirmed"
}

type WagersLockedMessage struct {
	Type     string   `json:"type"` // "wagers_locked"
	MyWager  WagerMap `json:"my_wager"`
	OppWager WagerMap `json:"opp_wager"`
}

type OpponentReadyMessage struct {
	Type string `json:"type"` // "opponent_ready"
}

type BothReadyMessage struct {
	Type      string `json:"type"` // "both_ready"
	Countdown int    `json:"countdown"`
}

type CountdownTickMessage struct {
	Type    string `json:"type"` // "countdown_tick"
	Seconds int    `json:"seconds"`
}

type GameStartMessage struct {
	Type     string `json:"type"` // "game_start"
	Duration int    `json:"duration"` // seconds
}

type OpponentDisconnectedMessage struct {
	Type               string `json:"type"` // "opponent_disconnected"
	CanReconnect       bool   `json:"can_reconnect"`
	GracePeriodSeconds int    `json:"grace_period_seconds"`
}

type GamePausedMessage struct {
	Type          string `json:"type"` // "game_paused"
	Reason        string `json:"reason"`
	TimeRemaining int    `json:"time_remaining"` // seconds
}

type GameResumingMessage struct {
	Type          string `json:"type"` // "game_resuming"
	Countdown     int    `json:"countdown"`
	TimeRemaining int    `json:"time_remaining"` // seconds
}

type GameResumedMessage struct {
	Type          string `json:"type"` // "game_resumed"
	TimeRemaining int    `json:"time_remaining"` // seconds
}

type OpponentReconnectedMessage struct {
	Type string `json:"type"` // "opponent_reconnected"
}

type OpponentLeftMessage struct {
	Type   string `json:"type"` // "opponent_left"
	Reason string `json:"reason"`
}

type OpponentCancelledWagerMessage struct {
	Type string `json:"type"` // "opponent_cancelled_wager"
}

type ReconnectSuccessMessage struct {
	Type          string   `json:"type"` // "reconnect_success"
	SessionID     string   `json:"session_id"`
	Board         []string `json:"board"`
	TimeRemaining int      `json:"time_remaining"` // seconds
	Opponent      string   `json:"opponent"`
	Paused        bool     `json:"paused"`
	Words         []string `json:"words"` // this player's submission so far, if any
}

type ReconnectFailedMessage struct {
	Type   string `json:"type"` // "reconnect_failed"
	Reason string `json:"reason"`
}

// PlayerResult is one side of a game_end message.
type PlayerResult struct {
	Words     []ScoredWord `json:"words"`
	Score     int          `json:"score"`
	WordCount int          `json:"word_count"`
}

// WagerOutcome describes how the pot was settled. Winner is empty on a
// tie, in which case Returned is set and each player got their own
// wager back.
type WagerOutcome struct {
	Winner   string   `json:"winner,omitempty"`
	Pot      WagerMap `json:"pot"`
	Returned bool     `json:"returned,omitempty"`
}

type GameEndMessage struct {
	Type        string        `json:"type"` // "game_end"
	Winner      string        `json:"winner,omitempty"` // display name, empty on tie
	SharedWords []string      `json:"shared_words"`
	You         PlayerResult  `json:"you"`
	Opponent    PlayerResult  `json:"opponent"`
	WagerResult *WagerOutcome `json:"wager_result,omitempty"`
}

func errMessage(err error) ErrorMessage {
	return ErrorMessage{
		Type:    "error",
		Code:    errorCode(err),
		Message: err.Error(),
	}
}
