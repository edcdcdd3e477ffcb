package vm

import (
	"strconv"
	"strings"

	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/types"
)

// Format renders the value held in slots (all t.Size slots of it, for an
// aggregate) as blikk's stdlib print/debug functions do:
// records as "Name { member = value, ... }", arrays as "[v1, v2, ...]",
// enums as "Type.Label".
func Format(t *types.Type, slots []program.Slot) string {
	var sb strings.Builder
	formatInto(&sb, t, slots)
	return sb.String()
}

func formatInto(sb *strings.Builder, t *types.Type, slots []program.Slot) {
	switch t.Kind {
	case types.Null:
		sb.WriteString("null")
	case types.Bool:
		if slots[0].I != 0 {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case types.Int:
		sb.WriteString(strconv.FormatInt(slots[0].I, 10))
	case types.Float:
		sb.WriteString(strconv.FormatFloat(slots[0].F, 'g', -1, 64))
	case types.String:
		sb.WriteString(*slots[0].Str)
	case types.TypeKind:
		sb.WriteString(slots[0].Typ.Signature)
	case types.Function:
		if slots[0].Fn == nil {
			sb.WriteString("<nil func>")
		} else {
			sb.WriteString(slots[0].Fn.Prototype)
		}
	case types.Opaque:
		sb.WriteString(t.Opq.Name)
	case types.Enum:
		label := "?"
		if int(slots[0].I) >= 0 && int(slots[0].I) < len(t.Enm.Labels) {
			label = t.Enm.Labels[slots[0].I]
		}
		sb.WriteString(t.Enm.Name)
		sb.WriteByte('.')
		sb.WriteString(label)
	case types.Array:
		sb.WriteByte('[')
		unit := t.Arr.Unit
		for i := 0; i < t.Arr.Len; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			off := i * unit.Size
			formatInto(sb, unit, slots[off:off+unit.Size])
		}
		sb.WriteByte(']')
	case types.Record:
		sb.WriteString(t.Rec.Name)
		sb.WriteString(" { ")
		for i, m := range t.Rec.Members {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(m.Name)
			sb.WriteString(" = ")
			formatInto(sb, m.Type, slots[m.Offset:m.Offset+m.Type.Size])
		}
		sb.WriteString(" }")
	default:
		sb.WriteString("<?>")
	}
}
