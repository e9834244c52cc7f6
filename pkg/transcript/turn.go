package transcript

import (
	"strings"
	"time"

	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/merkle"
)

// Turn builds the nodes for one exchange: the user's message chained onto
// parent, then the reply chained onto the user's message. A blank reply
// yields only the user node. The last returned node is the new head.
func Turn(parent *merkle.Node, session, model string, user llm.Message, resp *llm.ChatResponse, at time.Time) []*merkle.Node {
	userNode := merkle.NewNode(
		merkle.NewMessageBucket(user, model),
		parent,
		merkle.NodeMeta{Session: session, CreatedAt: at},
	)
	nodes := []*merkle.Node{userNode}

	if resp == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return nodes
	}

	replyModel := resp.Model
	if replyModel == "" {
		replyModel = model
	}

	reply := llm.NewAssistantMessage(resp.Message.Content)
	replyAt := resp.CreatedAt
	if replyAt.IsZero() {
		replyAt = at
	}

	nodes = append(nodes, merkle.NewNode(
		merkle.NewMessageBucket(reply, replyModel),
		userNode,
		merkle.NodeMeta{
			StopReason: resp.StopReason,
			Usage:      resp.Usage,
			Session:    session,
			CreatedAt:  replyAt,
		},
	))

	return nodes
}
