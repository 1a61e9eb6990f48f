package config

type WorkerKeyStruct struct {
	ArchiveBatchSize int
}

var WorkerKey = &WorkerKeyStruct{
	ArchiveBatchSize: 50,
}
