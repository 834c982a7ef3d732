package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryOf(t *testing.T, meta GameMeta, kind EventKind) EventSummary {
	t.Helper()

	for _, summary := range meta.ActiveEvents {
		if summary.Kind == kind {
			return summary
		}
	}

	require.FailNow(t, "公开信息里没有该事件", string(kind))
	return EventSummary{}
}

// 夜间事件只由角色授权，公开信息里不能出现行动人
func TestMetaHidesRoleGrants(t *testing.T) {
	gc, b := startedContext(t, nil, 7)
	require.Equal(t, ROLE_MURDERER, player(t, gc, 1).RoleName())
	require.Equal(t, ROLE_DOCTOR, player(t, gc, 3).RoleName())

	require.NoError(t, gc.SetPhase(PHASE_NIGHT))
	choose(t, gc, 1, ACTION_KILL, 4)
	choose(t, gc, 3, ACTION_PROTECT, 4)

	submitted := map[EventKind]int{
		EVENT_MURDER:      1,
		EVENT_PROTECT:     1,
		EVENT_INVESTIGATE: 0,
	}
	for kind, want := range submitted {
		summary := summaryOf(t, b.last.Meta, kind)
		assert.Empty(t, summary.Grants, kind)
		assert.Equal(t, 1, summary.Holders, kind)
		assert.Equal(t, want, summary.Submitted, kind)
	}

	// 本人仍然能在私有频道看到自己的行动
	doctor := b.last.PrivatePlayers[3]
	require.Contains(t, doctor.Actions, ACTION_PROTECT)
	assert.Equal(t, summaryOf(t, b.last.Meta, EVENT_PROTECT).ID, doctor.Actions[ACTION_PROTECT].EventID)

	require.NoError(t, gc.ResolvePhase())
	assert.True(t, player(t, gc, 4).IsAlive())

	protect := summaryOf(t, b.last.Meta, EVENT_PROTECT)
	assert.Empty(t, protect.Results)

	murder := summaryOf(t, b.last.Meta, EVENT_MURDER)
	require.Contains(t, murder.Results, ACTION_KILL)
	for _, e := range murder.Results[ACTION_KILL].Effects {
		assert.Nil(t, e.Actor)
	}

	data, err := json.Marshal(b.last.Meta)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"actorId"`)
	assert.NotContains(t, string(data), `"actor"`)

	// 公开日志只记录谁被救下，不写明来源
	for _, entry := range b.last.History {
		if entry.Type == LOG_SPARED {
			assert.Empty(t, entry.Detail)
		}
	}
}

func TestMetaKeepsEveryoneGrants(t *testing.T) {
	gc, b := startedContext(t, nil, 5)

	lynch := startLynch(t, gc)
	choose(t, gc, 1, ACTION_VOTE, 3)

	summary := summaryOf(t, b.last.Meta, EVENT_LYNCH)
	assert.Len(t, summary.Grants, 5)
	assert.Equal(t, 5, summary.Holders)
	assert.Equal(t, 1, summary.Submitted)

	require.NoError(t, gc.ResolveEvent(lynch.ID))

	summary = summaryOf(t, b.last.Meta, EVENT_LYNCH)
	require.Contains(t, summary.Results, ACTION_VOTE)
	assert.Equal(t, []int{3}, summary.Results[ACTION_VOTE].Highest)
	assert.Equal(t, []int{3}, gc.game.Pending.Targets())
}
