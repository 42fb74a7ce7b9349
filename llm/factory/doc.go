// Package factory 提供适配器的集中式工厂，
// 通过名称映射创建适配器实例，打破 llm 包与各供应商子包之间的循环依赖。
package factory
