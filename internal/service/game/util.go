package game

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// 房间号只需要在进程内唯一，截短便于口头传达
func GenShortID() string {
	return uuid.New().String()[:8]
}

// RandomShuffle 可以直接传给 WithRoleShuffle
func RandomShuffle(ids []int) {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
