package game

import (
	"go.uber.org/zap"
)

// groupNearby runs the proximity pass after a successful move. Every other
// player strictly closer than the threshold and not already in a group is
// admitted to the well-known group slot; the mover's own group state does
// not gate admission. Candidates are visited in map order; when several
// qualify in the same pass there is no defined tie-break, all are added.
func (c *Coordinator) groupNearby(mover *Player) {
	var admitted []PlayerID
	for id, other := range c.state.Players {
		if id == mover.ID {
			continue
		}
		if other.Group != nil {
			continue
		}
		if other.Pos.Dist(mover.Pos) >= c.opts.ProximityThreshold {
			continue
		}
		admitted = append(admitted, id)
	}
	if len(admitted) == 0 {
		return
	}

	group := c.state.group(WellKnownGroup)
	for _, id := range admitted {
		p := c.state.Players[id]
		gid := WellKnownGroup
		p.Group = &gid
		group.Members[id] = struct{}{}
		c.unicast(p, JoinGroup{
			Group: WellKnownGroup,
			Feed:  group.Feed.Subscribe(),
		})
		c.logger.Debug("player joined combat group",
			zap.Uint64("player", uint64(id)),
			zap.Uint64("group", uint64(WellKnownGroup)),
		)
	}
}
