// Package model はドメインモデルを定義する。
package model

// Club は開催場所となるクラブのラベルを表す。
// 参照リストとして読み取り専用で扱い、コア側から変更しない。
type Club string
