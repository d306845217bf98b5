package config

type WorkerKeyStruct struct {
	CourseSyncQueue string
}

var WorkerKey = &WorkerKeyStruct{
	CourseSyncQueue: "attendance_course_sync_queue",
}
