package domain

import (
	"encoding/json"
	"slices"
	"strings"
)

type OrderStatus string

const (
	StatusActive    OrderStatus = "active"
	StatusSuspended OrderStatus = "suspended"
	StatusStopped   OrderStatus = "stopped"
	StatusCancelled OrderStatus = "cancelled"
	StatusCompleted OrderStatus = "completed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusStopped, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

type Gender string

const (
	GenderFemale Gender = "Nữ"
	GenderMale   Gender = "Nam"
)

func (g Gender) Valid() bool { return g == GenderFemale || g == GenderMale }

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageDone       StageStatus = "done"
)

func (s StageStatus) Valid() bool {
	return s == StagePending || s == StageInProgress || s == StageDone
}

// ProductionOrder is the full order document exchanged with clients.
// Dates are canonical strings once they have passed through the store.
type ProductionOrder struct {
	ID             string        `json:"id"`
	OrderCode      string        `json:"orderCode"`
	ItemCode       string        `json:"itemCode"`
	ModelID        *string       `json:"modelId,omitempty"`
	CustomerID     string        `json:"customerId"`
	CustomerName   string        `json:"customerName"`
	Gender         Gender        `json:"gender"`
	TotalQuantity  int           `json:"totalQuantity"`
	OrderDate      string        `json:"orderDate"`
	DeliveryDate   string        `json:"deliveryDate"`
	ProductImage   string        `json:"productImage"`
	GeneralNote    string        `json:"generalNote"`
	BOM            BOM           `json:"bom"`
	Details        []DetailRow   `json:"details"`
	Stages         []Stage       `json:"stages"`
	Priority       Priority      `json:"priority"`
	PriorityReason string        `json:"priorityReason"`
	Status         OrderStatus   `json:"status"`
	StatusNote     string        `json:"statusNote"`
	StatusHistory  []StatusEntry `json:"statusHistory"`
	SortOrder      int           `json:"sortOrder"`
	CreatedAt      string        `json:"createdAt"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
	ParentOrderID  *string       `json:"parentOrderId,omitempty"`
}

// BOM is the bill of materials. Keys outside the known set are kept in
// Extra and written back unchanged. A known key that arrived with an empty
// value is written back as "" while an absent one stays absent.
type BOM struct {
	KnifeCode     string `json:"knifeCode"`
	FormCode      string `json:"formCode"`
	SoleCode      string `json:"soleCode"`
	FrameCode     string `json:"frameCode"`
	Heel          string `json:"heel"`
	Accessory     string `json:"accessory"`
	Talong        string `json:"talong"`
	TechnicalNote string `json:"technicalNote"`

	Extra map[string]json.RawMessage `json:"-"`

	// known keys decoded with an empty value, in bomKeys order
	emptyKeys []string
}

var bomKeys = []string{
	"knifeCode", "formCode", "soleCode", "frameCode",
	"heel", "accessory", "talong", "technicalNote",
}

type bomFields BOM

func (b *BOM) field(key string) *string {
	switch key {
	case "knifeCode":
		return &b.KnifeCode
	case "formCode":
		return &b.FormCode
	case "soleCode":
		return &b.SoleCode
	case "frameCode":
		return &b.FrameCode
	case "heel":
		return &b.Heel
	case "accessory":
		return &b.Accessory
	case "talong":
		return &b.Talong
	case "technicalNote":
		return &b.TechnicalNote
	}
	return nil
}

func (b BOM) IsZero() bool {
	return len(b.Extra) == 0 && b.KnifeCode == "" && b.FormCode == "" && b.SoleCode == "" &&
		b.FrameCode == "" && b.Heel == "" && b.Accessory == "" && b.Talong == "" && b.TechnicalNote == ""
}

func (b BOM) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(b.Extra)+len(bomKeys))
	for k, v := range b.Extra {
		merged[k] = v
	}
	for _, k := range bomKeys {
		if v := *b.field(k); v != "" || slices.Contains(b.emptyKeys, k) {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (b *BOM) UnmarshalJSON(data []byte) error {
	var known bomFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*b = BOM(known)
	b.Extra = nil
	b.emptyKeys = nil
	for _, k := range bomKeys {
		if _, ok := all[k]; ok && *b.field(k) == "" {
			b.emptyKeys = append(b.emptyKeys, k)
		}
		delete(all, k)
	}
	if len(all) > 0 {
		b.Extra = all
	}
	return nil
}

// Clone returns a BOM that shares no map or slice with b.
func (b BOM) Clone() BOM {
	out := b
	if b.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(b.Extra))
		for k, v := range b.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	out.emptyKeys = slices.Clone(b.emptyKeys)
	return out
}

// SizeBreakdown holds per-size quantities for one color line.
type SizeBreakdown struct {
	Size34 *int `json:"size34,omitempty"`
	Size35 *int `json:"size35,omitempty"`
	Size36 *int `json:"size36,omitempty"`
	Size37 *int `json:"size37,omitempty"`
	Size38 *int `json:"size38,omitempty"`
	Size39 *int `json:"size39,omitempty"`
	Size40 *int `json:"size40,omitempty"`
	Size41 *int `json:"size41,omitempty"`
	Size42 *int `json:"size42,omitempty"`
	Size43 *int `json:"size43,omitempty"`
	Size44 *int `json:"size44,omitempty"`
	Size45 *int `json:"size45,omitempty"`
}

const (
	MinSize = 34
	MaxSize = 45
)

func (s *SizeBreakdown) slot(size int) **int {
	switch size {
	case 34:
		return &s.Size34
	case 35:
		return &s.Size35
	case 36:
		return &s.Size36
	case 37:
		return &s.Size37
	case 38:
		return &s.Size38
	case 39:
		return &s.Size39
	case 40:
		return &s.Size40
	case 41:
		return &s.Size41
	case 42:
		return &s.Size42
	case 43:
		return &s.Size43
	case 44:
		return &s.Size44
	case 45:
		return &s.Size45
	}
	return nil
}

// Set stores qty for size and reports whether the size exists.
func (s *SizeBreakdown) Set(size, qty int) bool {
	p := s.slot(size)
	if p == nil {
		return false
	}
	*p = &qty
	return true
}

// Get returns the quantity for size, zero when unset.
func (s SizeBreakdown) Get(size int) int {
	p := s.slot(size)
	if p == nil || *p == nil {
		return 0
	}
	return **p
}

// Sum adds every populated size.
func (s SizeBreakdown) Sum() int {
	total := 0
	for size := MinSize; size <= MaxSize; size++ {
		total += s.Get(size)
	}
	return total
}

type DetailRow struct {
	ID     string        `json:"id"`
	Color  string        `json:"color"`
	Lining string        `json:"lining"`
	Sizes  SizeBreakdown `json:"sizes"`
	Total  int           `json:"total"`
}

// Stage is one step of the production workflow; slice order is the
// order in which the workshop runs them.
type Stage struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    StageStatus `json:"status"`
	StartDate string      `json:"startDate,omitempty"`
	EndDate   string      `json:"endDate,omitempty"`
	Note      string      `json:"note,omitempty"`
}

// StatusEntry records one lifecycle transition. Entries are never edited
// once stored.
type StatusEntry struct {
	Status OrderStatus `json:"status"`
	Date   string      `json:"date"`
	Reason string      `json:"reason"`
	Actor  string      `json:"actor,omitempty"`
}

// ReturnLog describes defective goods sent back against an order, used to
// derive a remake order.
type ReturnLog struct {
	Color    string `json:"color"`
	Size     int    `json:"size"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

var productionStages = []string{
	"Chặt",
	"Mặt giày",
	"Sườn",
	"Đế",
	"Gót",
	"Gò",
	"Đóng gói",
}

var stageIDReplacer = strings.NewReplacer(
	" ", "-",
	"à", "a", "á", "a", "ạ", "a", "ả", "a", "ã", "a", "â", "a", "ầ", "a", "ấ", "a",
	"ậ", "a", "ẩ", "a", "ẫ", "a", "ă", "a", "ằ", "a", "ắ", "a", "ặ", "a", "ẳ", "a", "ẵ", "a",
	"è", "e", "é", "e", "ẹ", "e", "ẻ", "e", "ẽ", "e", "ê", "e", "ề", "e", "ế", "e",
	"ệ", "e", "ể", "e", "ễ", "e",
	"ì", "i", "í", "i", "ị", "i", "ỉ", "i", "ĩ", "i",
	"ò", "o", "ó", "o", "ọ", "o", "ỏ", "o", "õ", "o", "ô", "o", "ồ", "o", "ố", "o",
	"ộ", "o", "ổ", "o", "ỗ", "o", "ơ", "o", "ờ", "o", "ớ", "o", "ợ", "o", "ở", "o", "ỡ", "o",
	"ù", "u", "ú", "u", "ụ", "u", "ủ", "u", "ũ", "u", "ư", "u", "ừ", "u", "ứ", "u",
	"ự", "u", "ử", "u", "ữ", "u",
	"ỳ", "y", "ý", "y", "ỵ", "y", "ỷ", "y", "ỹ", "y",
	"đ", "d",
)

// StageID derives the slug used as a stage id from its display name.
func StageID(name string) string {
	return stageIDReplacer.Replace(strings.ToLower(name))
}

// DefaultStages is the factory workflow every new order starts with.
func DefaultStages() []Stage {
	out := make([]Stage, 0, len(productionStages))
	for _, name := range productionStages {
		out = append(out, Stage{ID: StageID(name), Name: name, Status: StagePending})
	}
	return out
}
