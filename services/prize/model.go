package prize

// DropKind tags what a wheel segment or scratch-card cell pays out.
type DropKind string

const (
	DropPoints  DropKind = "JP"
	DropXP      DropKind = "XP"
	DropItem    DropKind = "ITEM"
	DropCoupon  DropKind = "COUPON"
	DropJackpot DropKind = "JACKPOT"
)

func (k DropKind) Valid() bool {
	switch k {
	case DropPoints, DropXP, DropItem, DropCoupon, DropJackpot:
		return true
	default:
		return false
	}
}

// DropRule is one weighted outcome in a drop table. Plain scratch cards only
// use Probability and Points; the shop wheel additionally tags Kind and Value.
type DropRule struct {
	Probability float64  `json:"probability"`
	Points      int64    `json:"points"`
	Kind        DropKind `json:"kind,omitempty"`
	Value       string   `json:"value,omitempty"`
	Label       string   `json:"label,omitempty"`
}
