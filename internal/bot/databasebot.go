package bot

import (
	"sort"

	"gamenight/internal/common"
)

type guildRecord struct {
	Id        string `json:"id"`
	ChannelId string `json:"channel_id"`
}

type storageBot struct {
	Guilds []guildRecord `json:"guilds"`
}

type DatabaseBot struct {
	common.Database
}

func CreateDatabaseBot(dbFilename string) DatabaseBot {
	return DatabaseBot{common.NewDatabase(dbFilename)}
}

func (db *DatabaseBot) GetGuilds() (Guilds, error) {
	var storage storageBot
	if err := db.Load(&storage); err != nil {
		return nil, err
	}
	guilds := Guilds{}
	for _, record := range storage.Guilds {
		guilds[record.Id] = Guild{id: record.Id, channelId: record.ChannelId}
	}
	return guilds, nil
}

func (db *DatabaseBot) SetGuilds(guilds Guilds) error {
	storage := storageBot{Guilds: []guildRecord{}}
	for _, guild := range guilds {
		storage.Guilds = append(storage.Guilds, guildRecord{Id: guild.id, ChannelId: guild.channelId})
	}
	sort.Slice(storage.Guilds, func(i, j int) bool { return storage.Guilds[i].Id < storage.Guilds[j].Id })
	return db.Save(storage)
}
