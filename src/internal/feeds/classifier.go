package feeds

import "strings"

// blockState is the position inside an abuse.ch style feed:
//
//	############################  headerRule
//	# comments                    headerComment
//	############################  dataRule
//	entries                       data
//	# 123 entries                 trailer
type blockState uint8

const (
	blockStart blockState = iota
	blockHeaderRule
	blockHeaderComment
	blockDataRule
	blockData
	blockTrailer
	blockStateCount
)

func (s blockState) String() string {
	return [...]string{"start", "header-rule", "header-comment", "data-rule", "data", "trailer"}[s]
}

type lineClass uint8

const (
	classRule    lineClass = iota // a run of at least ruleWidth comment markers
	classComment                  // other comment line
	classSummary                  // comment line mentioning "entries"
	classData                     // non-comment, non-empty
	classBlank
	lineClassCount
)

const ruleWidth = 10

// blockTransitions[state][class] is the next state. Unlisted pairs keep the
// current state.
var blockTransitions = func() [blockStateCount][lineClassCount]blockState {
	var t [blockStateCount][lineClassCount]blockState
	for s := blockState(0); s < blockStateCount; s++ {
		for c := lineClass(0); c < lineClassCount; c++ {
			t[s][c] = s
		}
	}
	t[blockStart][classRule] = blockHeaderRule
	t[blockHeaderRule][classComment] = blockHeaderComment
	t[blockHeaderComment][classRule] = blockDataRule
	t[blockDataRule][classData] = blockData
	t[blockDataRule][classBlank] = blockData
	t[blockData][classSummary] = blockTrailer
	return t
}()

func classifyLine(line string, comment byte) lineClass {
	switch {
	case line == "":
		return classBlank
	case strings.HasPrefix(line, strings.Repeat(string(comment), ruleWidth)):
		return classRule
	case line[0] == comment && strings.Contains(line, "entries"):
		return classSummary
	case line[0] == comment:
		return classComment
	default:
		return classData
	}
}

// classifyBlocks runs the block state machine over raw and returns the state
// after each line.
func classifyBlocks(raw []string, comment byte) []blockState {
	states := make([]blockState, len(raw))
	state := blockStart
	for i, line := range raw {
		state = blockTransitions[state][classifyLine(strings.TrimSpace(line), comment)]
		states[i] = state
	}
	return states
}

// HasMiscountedBlank reports whether raw contains a blank line inside its
// data block. The RW_IPBL feed counts such a line in its own trailer even
// though it carries no entry.
func HasMiscountedBlank(raw []string, comment byte) bool {
	state := blockStart
	for _, line := range raw {
		line = strings.TrimSpace(line)
		class := classifyLine(line, comment)
		state = blockTransitions[state][class]
		if class == classBlank && state == blockData {
			return true
		}
	}
	return false
}
