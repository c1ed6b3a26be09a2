package chore

import (
	"fmt"
	"sort"
	"time"

	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
)

type ChoreProgress struct {
	model.Chore
	DoneToday bool `json:"done_today"`
}

type RosterProgress struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Chores    []ChoreProgress `json:"chores"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
}

type MyChores struct {
	Rosters       []RosterProgress `json:"rosters"`
	Standalone    []model.Chore    `json:"standalone"`
	Bonus         []model.Chore    `json:"bonus"`
	BonusUnlocked bool             `json:"bonus_unlocked"`
}

type MemberProgress struct {
	UserID    int64            `json:"user_id"`
	Name      string           `json:"name"`
	Color     string           `json:"color"`
	Points    int              `json:"points"`
	Balance   model.Money      `json:"balance"`
	Rosters   []RosterProgress `json:"rosters"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
}

type LeagueEntry struct {
	UserID            int64       `json:"user_id"`
	Name              string      `json:"name"`
	StandardCompleted int         `json:"standard_completed"`
	BonusCompleted    int         `json:"bonus_completed"`
	TotalPoints       int         `json:"total_points"`
	TotalBalance      model.Money `json:"total_balance"`
}

// Views assembles read-only progress summaries.
type Views struct {
	chores  *store.ChoreStore
	rosters *store.RosterStore
	users   *store.UserStore
	prefs   *store.PreferencesStore
	bonus   *Evaluator
	loc     *time.Location
}

func NewViews(chores *store.ChoreStore, rosters *store.RosterStore, users *store.UserStore, prefs *store.PreferencesStore, bonus *Evaluator, loc *time.Location) *Views {
	return &Views{chores: chores, rosters: rosters, users: users, prefs: prefs, bonus: bonus, loc: loc}
}

func (v *Views) rosterProgress(userID int64, day string) ([]RosterProgress, error) {
	rosters, err := v.rosters.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	done, err := v.chores.CompletedOn(userID, day)
	if err != nil {
		return nil, err
	}

	out := make([]RosterProgress, 0, len(rosters))
	for _, r := range rosters {
		chores, err := v.chores.ListByRoster(r.ID)
		if err != nil {
			return nil, err
		}
		rp := RosterProgress{ID: r.ID, Name: r.Name, Chores: make([]ChoreProgress, 0, len(chores)), Total: len(chores)}
		for _, c := range chores {
			cp := ChoreProgress{Chore: c, DoneToday: done[c.ID]}
			if cp.DoneToday {
				rp.Completed++
			}
			rp.Chores = append(rp.Chores, cp)
		}
		out = append(out, rp)
	}
	return out, nil
}

// MyChores is the user's view of today: roster progress, open standalone
// chores (others' personal chores hidden) and the bonus pool.
func (v *Views) MyChores(userID int64, now time.Time) (*MyChores, error) {
	rosters, err := v.rosterProgress(userID, DayKey(now, v.loc))
	if err != nil {
		return nil, fmt.Errorf("my chores: %w", err)
	}

	standard, err := v.chores.ListStandalone(false)
	if err != nil {
		return nil, fmt.Errorf("my chores: %w", err)
	}
	standalone := make([]model.Chore, 0, len(standard))
	for _, c := range standard {
		if c.Personal && (c.AssigneeID == nil || *c.AssigneeID != userID) {
			continue
		}
		standalone = append(standalone, c)
	}

	bonus, err := v.chores.ListStandalone(true)
	if err != nil {
		return nil, fmt.Errorf("my chores: %w", err)
	}
	if bonus == nil {
		bonus = []model.Chore{}
	}

	unlocked, err := v.bonus.Unlocked(userID, now)
	if err != nil {
		return nil, fmt.Errorf("my chores: %w", err)
	}

	return &MyChores{Rosters: rosters, Standalone: standalone, Bonus: bonus, BonusUnlocked: unlocked}, nil
}

// FamilyOverview reports today's roster progress for every non-parent.
func (v *Views) FamilyOverview(now time.Time) ([]MemberProgress, error) {
	members, err := v.users.ListMembers()
	if err != nil {
		return nil, fmt.Errorf("family overview: %w", err)
	}
	day := DayKey(now, v.loc)

	out := make([]MemberProgress, 0, len(members))
	for _, m := range members {
		rosters, err := v.rosterProgress(m.ID, day)
		if err != nil {
			return nil, fmt.Errorf("family overview: %w", err)
		}
		prefs, err := v.prefs.Get(m.ID)
		if err != nil {
			return nil, fmt.Errorf("family overview: %w", err)
		}
		mp := MemberProgress{
			UserID:  m.ID,
			Name:    m.Name,
			Color:   prefs.DisplayColor,
			Points:  m.Points,
			Balance: m.Balance,
			Rosters: rosters,
		}
		for _, r := range rosters {
			mp.Completed += r.Completed
			mp.Total += r.Total
		}
		out = append(out, mp)
	}
	return out, nil
}

// LeagueTable ranks users by completed standard then bonus chores. It is empty
// when any parent has hidden it.
func (v *Views) LeagueTable() ([]LeagueEntry, error) {
	hidden, err := v.prefs.LeagueHidden()
	if err != nil {
		return nil, fmt.Errorf("league table: %w", err)
	}
	if hidden {
		return []LeagueEntry{}, nil
	}

	users, err := v.users.List()
	if err != nil {
		return nil, fmt.Errorf("league table: %w", err)
	}
	counts, err := v.chores.CompletedCounts()
	if err != nil {
		return nil, fmt.Errorf("league table: %w", err)
	}

	league := make([]LeagueEntry, 0, len(users))
	for _, u := range users {
		c := counts[u.ID]
		league = append(league, LeagueEntry{
			UserID:            u.ID,
			Name:              u.Name,
			StandardCompleted: c[0],
			BonusCompleted:    c[1],
			TotalPoints:       u.Points,
			TotalBalance:      u.Balance,
		})
	}
	sort.SliceStable(league, func(i, j int) bool {
		if league[i].StandardCompleted != league[j].StandardCompleted {
			return league[i].StandardCompleted > league[j].StandardCompleted
		}
		return league[i].BonusCompleted > league[j].BonusCompleted
	})
	return league, nil
}
