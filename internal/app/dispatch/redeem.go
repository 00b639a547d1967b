package dispatch

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"

	"chatcraft/internal/app/action"
	"chatcraft/internal/app/binding"
	"chatcraft/internal/domain/stream"
)

// Payload is a raw redemption webhook body. Upstream does not guarantee a
// stable shape, so fields are extracted by probing a fixed, ordered list of
// known spellings instead of decoding into a struct.
type Payload map[string]any

type fieldProbe func(Payload) (string, bool)

func probeKey(keys ...string) fieldProbe {
	return func(p Payload) (string, bool) {
		for _, k := range keys {
			if s, ok := stringOf(p[k]); ok {
				return s, true
			}
		}
		return "", false
	}
}

func probePath(path ...string) fieldProbe {
	return func(p Payload) (string, bool) {
		cur := map[string]any(p)
		for i, k := range path {
			if i == len(path)-1 {
				return stringOf(cur[k])
			}
			next, ok := cur[k].(map[string]any)
			if !ok {
				return "", false
			}
			cur = next
		}
		return "", false
	}
}

func stringOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	default:
		return "", false
	}
}

func extract(p Payload, probes []fieldProbe) string {
	for _, probe := range probes {
		if s, ok := probe(p); ok {
			return s
		}
	}
	return ""
}

// Known spellings per field, tried in order. New upstream payload revisions
// get another entry here instead of a decode rewrite.
var (
	rewardIDProbes = []fieldProbe{
		probePath("reward", "id"),
		probeKey("reward_id", "rewardId"),
	}
	rewardTitleProbes = []fieldProbe{
		probePath("reward", "title"),
		probeKey("reward_title", "rewardTitle", "title"),
	}
	userIDProbes = []fieldProbe{
		probePath("user", "id"),
		probeKey("user_id", "userId"),
	}
	userNameProbes = []fieldProbe{
		probePath("user", "display_name"),
		probePath("user", "login"),
		probeKey("user_name", "userName", "display_name", "login"),
	}
	userInputProbes = []fieldProbe{
		probeKey("user_input", "userInput", "input", "prompt_response"),
	}
)

// Decode normalizes a raw payload into a RedemptionEvent. ok is false when a
// mandatory field (reward id or title, plus an identity) is missing; the
// caller must then drop the event rather than guess.
func Decode(p Payload) (stream.RedemptionEvent, bool) {
	ev := stream.RedemptionEvent{
		RewardID:    extract(p, rewardIDProbes),
		RewardTitle: extract(p, rewardTitleProbes),
		UserInput:   extract(p, userInputProbes),
		Channel:     extract(p, []fieldProbe{probeKey("broadcaster_user_login", "channel")}),
	}
	ev.Identity = stream.Identity{
		UserID:      extract(p, userIDProbes),
		DisplayName: extract(p, userNameProbes),
		Role:        stream.RoleEveryone,
	}
	if ev.RewardID == "" && ev.RewardTitle == "" {
		return ev, false
	}
	if ev.Identity.UserID == "" {
		return ev, false
	}
	if ev.Identity.DisplayName == "" {
		ev.Identity.DisplayName = ev.Identity.UserID
	}
	return ev, true
}

// RedeemDispatcher matches redemption events against redeem bindings.
// Reward-id matches take priority over reward-title matches; within each
// pass the first binding in config order wins. Unlike the command
// dispatcher it is fed by concurrent webhook requests, so the synchronous
// portion of Dispatch is serialized under a mutex.
type RedeemDispatcher struct {
	Executor

	Bindings *binding.Store

	mu          sync.Mutex
	byID        map[string]binding.Binding
	byTitle     []binding.Binding
	lastVersion uint64
}

func NewRedeemDispatcher(ex Executor, store *binding.Store) *RedeemDispatcher {
	return &RedeemDispatcher{Executor: ex, Bindings: store}
}

// DispatchRaw decodes and dispatches a raw webhook payload, failing closed
// on malformed input.
func (d *RedeemDispatcher) DispatchRaw(ctx context.Context, p Payload) {
	ev, ok := Decode(p)
	if !ok {
		log.Printf("redeem: dropping payload with missing mandatory fields (reward %q/%q)", ev.RewardID, ev.RewardTitle)
		return
	}
	d.Dispatch(ctx, ev)
}

// Dispatch routes one normalized redemption event. Safe for concurrent use;
// events are matched and recorded one at a time in lock order.
func (d *RedeemDispatcher) Dispatch(ctx context.Context, ev stream.RedemptionEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.refreshIndex()
	if !snap.RedeemsEnabled {
		return
	}

	inv := invocationFromRedemption(ev)
	b, ok := d.match(ev)
	if !ok {
		if snap.LogUnmatched {
			log.Printf("redeem: no binding for reward %q (%s) from %s", ev.RewardTitle, ev.RewardID, ev.Identity.DisplayName)
			d.record(kindRedeem, inv, outcomeUnmatched, "reward "+ev.RewardID)
		}
		return
	}

	if !ev.Identity.Role.Satisfies(b.Permission) {
		d.reply(ev.Channel, "@"+ev.Identity.DisplayName+" you need "+b.Permission.String()+" rank for that reward.")
		d.record(kindRedeem, inv, outcomeDenied, "requires "+b.Permission.String())
		return
	}
	d.runBinding(ctx, kindRedeem, b, inv)
}

func (d *RedeemDispatcher) match(ev stream.RedemptionEvent) (binding.Binding, bool) {
	if ev.RewardID != "" {
		if b, ok := d.byID[ev.RewardID]; ok {
			return b, true
		}
	}
	for _, b := range d.byTitle {
		if strings.EqualFold(b.RewardTitle, ev.RewardTitle) {
			return b, true
		}
	}
	return binding.Binding{}, false
}

// refreshIndex rebuilds the reward lookup only when the config generation
// advanced. Caller holds mu.
func (d *RedeemDispatcher) refreshIndex() *binding.Snapshot {
	snap := d.Bindings.Snapshot()
	if snap.Version == d.lastVersion && d.byID != nil {
		return snap
	}
	byID := map[string]binding.Binding{}
	var byTitle []binding.Binding
	for _, b := range snap.Redeems {
		if b.RewardID != "" {
			if _, dup := byID[b.RewardID]; !dup {
				byID[b.RewardID] = b
			}
		}
		if b.RewardTitle != "" {
			byTitle = append(byTitle, b)
		}
	}
	d.byID = byID
	d.byTitle = byTitle
	d.lastVersion = snap.Version
	return snap
}

func invocationFromRedemption(ev stream.RedemptionEvent) action.Invocation {
	return action.Invocation{
		UserID:      ev.Identity.UserID,
		DisplayName: ev.Identity.DisplayName,
		Channel:     ev.Channel,
		Message:     ev.UserInput,
		RewardID:    ev.RewardID,
		RewardTitle: ev.RewardTitle,
	}
}
