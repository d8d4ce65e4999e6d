package store

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.Store / core.DocumentStore / core.ConfigStore / core.FeedbackStore 接口。
//
// 示例：
//   var cache core.Store = NewMemoryStore()
//   var docs core.DocumentStore = NewMemoryDocuments()
