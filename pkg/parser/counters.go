package parser

import "mvlcdaq/pkg/mvlcproto"

// ParseResult tags the outcome of one buffer-level parse step.
type ParseResult uint8

const (
	ParseResultOk ParseResult = iota
	ParseResultNoHeader
	ParseResultUnexpectedFrameType
	ParseResultEventIndexOutOfRange
	parseResultCount
)

func (r ParseResult) String() string {
	switch r {
	case ParseResultOk:
		return "Ok"
	case ParseResultNoHeader:
		return "NoHeader"
	case ParseResultUnexpectedFrameType:
		return "UnexpectedFrameType"
	case ParseResultEventIndexOutOfRange:
		return "EventIndexOutOfRange"
	default:
		return "Unknown"
	}
}

// groupKey packs an (eventIndex, groupIndex) pair into the map key the
// per-module size aggregates are indexed by.
func groupKey(eventIndex, groupIndex int) uint32 {
	return uint32(uint16(eventIndex))<<16 | uint32(uint16(groupIndex))
}

// GroupAggregate tracks the observed payload-size range of one module
// across every event it appeared in.
type GroupAggregate struct {
	Min  uint64
	Max  uint64
	Sum  uint64
	Hits uint64
}

// Counters is the parser's monotonic stats ensemble.
type Counters struct {
	BuffersProcessed    int64
	UnusedBytes         int64
	EthPacketLoss       int64
	EthPacketsProcessed int64
	ParserExceptions    int64
	EmptyStackFrames    int64

	SystemEventTypes [mvlcproto.SystemEventTypeCount]int64
	ParseResults     [int(parseResultCount)]int64

	EventHits  map[int]int64
	GroupSizes map[uint32]*GroupAggregate
}

// NewCounters returns a zeroed Counters with its maps initialized.
func NewCounters() Counters {
	return Counters{
		EventHits:  make(map[int]int64),
		GroupSizes: make(map[uint32]*GroupAggregate),
	}
}

func (c *Counters) recordGroup(eventIndex, groupIndex, words int) {
	key := groupKey(eventIndex, groupIndex)
	agg, ok := c.GroupSizes[key]
	if !ok {
		agg = &GroupAggregate{Min: uint64(words), Max: uint64(words)}
		c.GroupSizes[key] = agg
	}
	w := uint64(words)
	if w < agg.Min {
		agg.Min = w
	}
	if w > agg.Max {
		agg.Max = w
	}
	agg.Sum += w
	agg.Hits++
}
