package rest

// General response structure
type RestResp struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Store info response
type InfoResp struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	WSClients int    `json:"wsClients"`
}

// One stored entry, without its payload
type EntrySummary struct {
	Address    string `json:"address"`
	TypeID     int32  `json:"typeId"`
	WriteCount uint64 `json:"writeCount"`
	MagicHash  string `json:"magicHash"`
}

// Store stats response
type StatsResp struct {
	Entries     int            `json:"entries"`
	TotalWrites uint64         `json:"totalWrites"`
	WSClients   int            `json:"wsClients"`
	List        []EntrySummary `json:"list"`
}
