package protocol

type ItemStack struct {
	Item  string `json:"item"`
	Meta  int    `json:"meta,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Count int    `json:"count"`
}

// RequestMsg (client -> server). Controller is a "dim@x,y,z" position id.
type RequestMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Controller      string `json:"controller"`

	// INSERT
	Stack *ItemStack `json:"stack,omitempty"`

	// EXTRACT
	Item       string `json:"item,omitempty"`
	Meta       int    `json:"meta,omitempty"`
	IgnoreMeta bool   `json:"ignore_meta,omitempty"`
	Count      int    `json:"count,omitempty"`

	Simulate bool `json:"simulate,omitempty"`
}

// ResultMsg (server -> client), one per request.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Tick            uint64 `json:"tick"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	Stacks    []ItemStack    `json:"stacks,omitempty"`
	Stack     *ItemStack     `json:"stack,omitempty"`
	Remainder *ItemStack     `json:"remainder,omitempty"`
	Members   int            `json:"members,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
	Report    *NetworkReport `json:"report,omitempty"`
}

type BlockCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type LinkSummary struct {
	Pos       string `json:"pos"`
	Priority  int    `json:"priority"`
	Direction string `json:"direction"`
	Face      string `json:"face"`
}

type NetworkReport struct {
	Controller string        `json:"controller"`
	Members    int           `json:"members"`
	Truncated  bool          `json:"truncated,omitempty"`
	EmptySlots int           `json:"empty_slots"`
	Blocks     []BlockCount  `json:"blocks"`
	Links      []LinkSummary `json:"links"`
}

func ErrorResult(id, code, msg string) ResultMsg {
	return ResultMsg{
		Type:            TypeResult,
		ProtocolVersion: Version,
		ID:              id,
		OK:              false,
		Code:            code,
		Message:         msg,
	}
}
